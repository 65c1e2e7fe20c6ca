package dense

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/clinicore/medsearch/internal/models"
)

const chromemCollection = "chunks"

// ChromemIndex is a dense index backed by chromem-go's persistent store.
// chromem writes documents to disk as they are added, so Save and Load are
// no-ops beyond what the constructor does.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
}

// NewChromemIndex opens (or creates) a persistent chromem database at path.
func NewChromemIndex(path string, dimensions int) (*ChromemIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	// Embeddings are always supplied precomputed, so no embedding func is set.
	coll, err := db.GetOrCreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection: %w", err)
	}
	return &ChromemIndex{db: db, collection: coll, dimensions: dimensions}, nil
}

// Add stores entries with their precomputed embeddings. The chunk offset is
// kept in metadata for deterministic tie-breaking at query time.
func (c *ChromemIndex) Add(ctx context.Context, entries []Entry) error {
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		if len(e.Vector) != c.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", e.ID, len(e.Vector), c.dimensions)
		}
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Metadata:  map[string]string{"offset": strconv.Itoa(e.Offset)},
			Embedding: e.Vector,
			Content:   e.ID,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := c.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Remove deletes entries by ID. Unknown IDs are ignored.
func (c *ChromemIndex) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// Search queries by embedding and returns top-k by similarity, ties broken by
// lower offset.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	count := c.collection.Count()
	if count == 0 {
		return nil, fmt.Errorf("%w: dense index is empty", models.ErrIndexNotReady)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	hits, err := c.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query chromem: %w", err)
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		offset, _ := strconv.Atoi(h.Metadata["offset"])
		results = append(results, Result{ID: h.ID, Offset: offset, Score: float64(h.Similarity)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Offset < results[j].Offset
	})
	return results, nil
}

// Save is a no-op: chromem persists on Add.
func (c *ChromemIndex) Save(path string) error { return nil }

// Load is a no-op: the constructor opens the persisted collection.
func (c *ChromemIndex) Load(path string) error { return nil }

// Size returns the number of stored vectors.
func (c *ChromemIndex) Size() int {
	return c.collection.Count()
}

// Reset drops and recreates the collection, discarding all vectors.
func (c *ChromemIndex) Reset(ctx context.Context) error {
	if err := c.db.DeleteCollection(chromemCollection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	coll, err := c.db.GetOrCreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	c.collection = coll
	return nil
}

// Close is a no-op for ChromemIndex.
func (c *ChromemIndex) Close() error { return nil }
