package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/clinicore/medsearch/internal/config"
	"github.com/clinicore/medsearch/internal/dense"
	"github.com/clinicore/medsearch/internal/embedding"
	"github.com/clinicore/medsearch/internal/models"
	"github.com/clinicore/medsearch/internal/sparse"
	"github.com/clinicore/medsearch/internal/storage"
)

const testDims = 16

var testChunkTexts = []string{
	"amoxicillin dosage for adult patients with community acquired pneumonia",
	"pediatric fever management and antipyretic dosing schedules",
	"hypertension screening thresholds and followup intervals",
	"insulin titration protocol for type two diabetes",
}

// newTestRetriever ingests a small corpus through storage and both indexes
// using the deterministic mock embedder.
func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := embedding.NewMockEmbedder(testDims)
	denseIdx, err := dense.NewMemoryIndex(testDims)
	if err != nil {
		t.Fatal(err)
	}

	doc := &models.Document{ID: "doc-1", Source: "handbook.txt", PageCount: 1}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	var chunks []*models.Chunk
	var entries []dense.Entry
	for i, text := range testChunkTexts {
		offset := i * 100
		ch := &models.Chunk{
			ID:         fmt.Sprintf("doc-1:%d", offset),
			DocumentID: "doc-1",
			Source:     "handbook.txt",
			Page:       1,
			Offset:     offset,
			Text:       text,
		}
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		chunks = append(chunks, ch)
		entries = append(entries, dense.Entry{ID: ch.ID, Offset: offset, Vector: vec})
	}
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if err := denseIdx.Add(ctx, entries); err != nil {
		t.Fatal(err)
	}
	sparseIdx, err := sparse.Build(chunks, sparse.Params{K1: 1.5, B: 0.75})
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return NewRetriever(store, embedder, denseIdx, sparseIdx, &cfg.Search, zap.NewNop())
}

func TestRetrieveHybrid(t *testing.T) {
	r := newTestRetriever(t)
	// Querying with a chunk's exact text makes it the dense and sparse
	// winner at once, so the hybrid top hit is deterministic.
	results, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query: testChunkTexts[0],
		K:     3,
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) == 0 || len(results) > 3 {
		t.Fatalf("expected 1..3 results, got %d", len(results))
	}
	top := results[0]
	if top.ChunkID != "doc-1:0" {
		t.Errorf("expected the pneumonia chunk first, got %s", top.ChunkID)
	}
	if top.Method != models.MethodHybrid {
		t.Errorf("method = %s, want hybrid", top.Method)
	}
	if top.Text == "" || top.Source != "handbook.txt" || top.Page != 1 {
		t.Errorf("provenance not joined from store: %+v", top)
	}
	for i := 1; i < len(results); i++ {
		if results[i].FusedScore > results[i-1].FusedScore {
			t.Error("results not sorted by fused score descending")
		}
	}
}

func TestRetrieveDenseExactMatchFirst(t *testing.T) {
	r := newTestRetriever(t)
	// The mock embedder is deterministic, so querying with a chunk's exact
	// text puts that chunk first with inner product 1.
	results, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query:  testChunkTexts[2],
		K:      2,
		Method: "dense",
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if results[0].ChunkID != "doc-1:200" {
		t.Errorf("expected exact-match chunk first, got %s", results[0].ChunkID)
	}
	if results[0].Method != models.MethodDense {
		t.Errorf("method = %s, want dense", results[0].Method)
	}
	if results[0].SparseScore != 0 {
		t.Errorf("dense-only retrieval must not carry a sparse score, got %f", results[0].SparseScore)
	}
}

func TestRetrieveSparse(t *testing.T) {
	r := newTestRetriever(t)
	results, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query:  "insulin titration",
		K:      2,
		Method: "sparse",
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results for matching terms")
	}
	if results[0].ChunkID != "doc-1:300" {
		t.Errorf("expected the insulin chunk first, got %s", results[0].ChunkID)
	}
	if results[0].DenseScore != 0 {
		t.Errorf("sparse-only retrieval must not carry a dense score, got %f", results[0].DenseScore)
	}
}

func TestRetrieveSparseNoMatch(t *testing.T) {
	r := newTestRetriever(t)
	results, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query:  "zzzqqq xxyyzz",
		K:      5,
		Method: "sparse",
	})
	if err != nil {
		t.Fatalf("no-match query should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRetrieveInvalidMethod(t *testing.T) {
	r := newTestRetriever(t)
	_, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query:  "anything",
		Method: "semantic",
	})
	if !errors.Is(err, models.ErrInvalidMethod) {
		t.Errorf("expected ErrInvalidMethod, got %v", err)
	}
}

func TestRetrieveEmptyIndexes(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	denseIdx, err := dense.NewMemoryIndex(testDims)
	if err != nil {
		t.Fatal(err)
	}
	sparseIdx, err := sparse.NewIndex(sparse.Params{K1: 1.5, B: 0.75})
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	r := NewRetriever(store, embedding.NewMockEmbedder(testDims), denseIdx, sparseIdx, &cfg.Search, zap.NewNop())

	for _, method := range []string{"dense", "sparse", "hybrid"} {
		_, err := r.Retrieve(context.Background(), &models.RetrieveRequest{Query: "anything", Method: method})
		if !errors.Is(err, models.ErrIndexNotReady) {
			t.Errorf("method %s: expected ErrIndexNotReady, got %v", method, err)
		}
	}
}

func TestRetrieveSparseEmptyCorpus(t *testing.T) {
	r := newTestRetriever(t)
	// An index built over zero chunks is ready, it just has nothing to say.
	empty, err := sparse.Build(nil, sparse.Params{K1: 1.5, B: 0.75})
	if err != nil {
		t.Fatal(err)
	}
	r.SetSparse(empty)

	results, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query:  "amoxicillin",
		Method: "sparse",
		K:      5,
	})
	if err != nil {
		t.Fatalf("empty built corpus should not error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRetrieveMinScoreFilter(t *testing.T) {
	r := newTestRetriever(t)
	all, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query: "dosage",
		K:     4,
	})
	if err != nil {
		t.Fatal(err)
	}
	filtered, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query:    "dosage",
		K:        4,
		MinScore: 0.99,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) > len(all) {
		t.Error("min-score filter must not add results")
	}
	for _, res := range filtered {
		if res.FusedScore < 0.99 {
			t.Errorf("result below min score leaked through: %f", res.FusedScore)
		}
	}
}

func TestRetrieveSetSparseSwap(t *testing.T) {
	r := newTestRetriever(t)
	replacement := []*models.Chunk{
		{ID: "doc-2:0", DocumentID: "doc-2", Source: "new.txt", Page: 1, Offset: 0, Text: "warfarin interaction monitoring"},
	}
	idx, err := sparse.Build(replacement, sparse.Params{K1: 1.5, B: 0.75})
	if err != nil {
		t.Fatal(err)
	}
	r.SetSparse(idx)

	results, err := r.Retrieve(context.Background(), &models.RetrieveRequest{
		Query:  "insulin titration",
		K:      2,
		Method: "sparse",
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("old corpus should be gone after swap, got %d results", len(results))
	}
}
