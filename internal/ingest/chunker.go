// Package ingest turns source documents into embedded, indexed chunks.
package ingest

import (
	"fmt"

	"github.com/clinicore/medsearch/internal/docid"
	"github.com/clinicore/medsearch/internal/models"
)

// Chunker splits documents into overlapping character windows. Offsets are
// counted in runes over the concatenation of all page texts, so chunk IDs
// and page attribution stay stable across re-ingestion.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given window size and overlap, both
// in characters. Overlap must be smaller than the window size.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfiguration, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, size), got %d", models.ErrInvalidConfiguration, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk splits the document's pages into overlapping windows. Each chunk is
// attributed to the page containing its first character.
func (c *Chunker) Chunk(doc *models.Document) []*models.Chunk {
	// Page start offsets over the concatenated text, for attribution.
	type pageStart struct {
		number int
		offset int
	}
	var starts []pageStart
	var all []rune
	for _, p := range doc.Pages {
		starts = append(starts, pageStart{number: p.Number, offset: len(all)})
		all = append(all, []rune(p.Text)...)
	}
	if len(all) == 0 {
		return nil
	}

	pageAt := func(offset int) int {
		page := 1
		for _, s := range starts {
			if s.offset <= offset {
				page = s.number
			} else {
				break
			}
		}
		return page
	}

	step := c.chunkSize - c.chunkOverlap
	var chunks []*models.Chunk
	for i := 0; i < len(all); i += step {
		end := i + c.chunkSize
		if end > len(all) {
			end = len(all)
		}
		chunks = append(chunks, &models.Chunk{
			ID:         docid.ForChunk(doc.ID, i),
			DocumentID: doc.ID,
			Source:     doc.Source,
			Page:       pageAt(i),
			Offset:     i,
			Text:       string(all[i:end]),
		})
		if end >= len(all) {
			break
		}
	}
	return chunks
}
