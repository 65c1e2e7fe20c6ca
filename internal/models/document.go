// Package models defines core data structures for documents, chunks, and retrieval results.
package models

import "time"

// Page is a single page of a source document. Numbers start at 1.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is a named source text as an ordered sequence of pages.
// Immutable once ingested; identified by a stable ID derived from its path.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Source    string    `json:"source" db:"source"`
	Path      string    `json:"path" db:"path"`
	Pages     []Page    `json:"-" db:"-"`
	PageCount int       `json:"page_count" db:"page_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Text returns the concatenation of all page texts, in order, with no
// separators. Chunk offsets are positions into this string.
func (d *Document) Text() string {
	var n int
	for _, p := range d.Pages {
		n += len(p.Text)
	}
	buf := make([]byte, 0, n)
	for _, p := range d.Pages {
		buf = append(buf, p.Text...)
	}
	return string(buf)
}

// Chunk is a contiguous window of a document's concatenated text, the atomic
// unit indexed and retrieved. Chunks are produced once at ingestion time and
// are read-only afterwards.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Source     string    `json:"source" db:"source"`
	Page       int       `json:"page" db:"page"`
	Offset     int       `json:"offset" db:"offset"`
	Text       string    `json:"text" db:"text"`
	Embedding  []float32 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
