// Package dense provides vector index backends for embedding similarity search.
package dense

import (
	"context"
	"fmt"
)

// Backend identifies a dense index implementation.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendChromem Backend = "chromem"
)

// Entry pairs a chunk ID with its embedding and character offset. The offset
// is carried so that equal-score results can be ordered deterministically
// (earlier in the document wins).
type Entry struct {
	ID     string
	Offset int
	Vector []float32
}

// Result is a single similarity hit.
type Result struct {
	ID     string
	Offset int
	Score  float64 // inner product; equals cosine similarity for unit vectors
}

// Index stores chunk embeddings and answers nearest-neighbor queries.
// An index is written once during ingestion and read-only afterwards;
// Search is safe for concurrent callers.
type Index interface {
	Add(ctx context.Context, entries []Entry) error
	// Remove deletes entries by chunk ID. Unknown IDs are ignored.
	Remove(ctx context.Context, ids []string) error
	// Search returns the top-k entries by similarity, descending, ties broken
	// by lower offset. Fails with models.ErrIndexNotReady when empty.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// New creates a dense index for the given backend. The memory backend
// persists to a single binary file; the chromem backend persists under a
// directory managed by chromem-go.
func New(backend Backend, dimensions int, path string) (Index, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryIndex(dimensions)
	case BackendChromem:
		return NewChromemIndex(path, dimensions)
	default:
		return nil, fmt.Errorf("unknown dense backend: %q", backend)
	}
}
