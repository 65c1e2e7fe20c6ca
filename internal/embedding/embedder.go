// Package embedding provides text embedding behind a narrow capability contract.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must return
// unit-normalized vectors of a fixed dimension and be deterministic for a
// fixed model, so that indexes built and queried with the same embedder agree.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
