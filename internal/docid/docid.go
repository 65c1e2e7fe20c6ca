// Package docid provides deterministic identifiers for documents and chunks.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// ForPath returns a stable document ID for the given path. Same path always
// yields the same ID, so re-ingesting a file replaces its previous entry.
func ForPath(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:16])
}

// ForChunk returns the chunk ID for a chunk at the given character offset
// within a document. Chunk IDs are deterministic so re-ingesting a document
// produces the same IDs and persisted indexes stay consistent.
func ForChunk(documentID string, offset int) string {
	return fmt.Sprintf("%s:%d", documentID, offset)
}
