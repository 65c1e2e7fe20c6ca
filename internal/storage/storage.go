// Package storage defines the persistence interface for documents and chunks.
package storage

import (
	"context"

	"github.com/clinicore/medsearch/internal/models"
)

// Storage persists documents and their chunks. The indexes hold only chunk
// IDs and scores; the retriever joins against this store for text and
// provenance.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]*models.Document, error)

	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	ListChunks(ctx context.Context) ([]*models.Chunk, error)
	ListChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)
	DeleteChunksByDocumentID(ctx context.Context, docID string) error

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
