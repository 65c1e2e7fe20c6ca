package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clinicore/medsearch/internal/config"
	"github.com/clinicore/medsearch/internal/dense"
	"github.com/clinicore/medsearch/internal/embedding"
	"github.com/clinicore/medsearch/internal/models"
	"github.com/clinicore/medsearch/internal/sparse"
	"github.com/clinicore/medsearch/internal/storage"
)

// Retriever answers retrieval queries against the dense and sparse indexes
// and joins hits with the chunk store for text and provenance. The sparse
// index is swapped via SetSparse after a re-ingest; Retrieve is safe for
// concurrent callers.
type Retriever struct {
	store      storage.Storage
	embedder   embedding.Embedder
	denseIndex dense.Index
	cfg        *config.SearchConfig
	logger     *zap.Logger

	mu          sync.RWMutex
	sparseIndex *sparse.Index
}

// NewRetriever creates a retriever with the given dependencies.
func NewRetriever(
	store storage.Storage,
	embedder embedding.Embedder,
	denseIndex dense.Index,
	sparseIndex *sparse.Index,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		store:       store,
		embedder:    embedder,
		denseIndex:  denseIndex,
		sparseIndex: sparseIndex,
		cfg:         cfg,
		logger:      logger,
	}
}

// SetSparse swaps in a freshly built sparse index.
func (r *Retriever) SetSparse(idx *sparse.Index) {
	r.mu.Lock()
	r.sparseIndex = idx
	r.mu.Unlock()
}

func (r *Retriever) sparse() *sparse.Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sparseIndex
}

// Retrieve runs the query through the requested method and returns the top-k
// results. Each method's candidate set is overfetched (k times the configured
// factor) so fusion ranks over a wide pool before truncating to k.
func (r *Retriever) Retrieve(ctx context.Context, req *models.RetrieveRequest) ([]models.RetrievalResult, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	method, err := models.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	fetch := req.K * r.cfg.OverfetchFactor

	var (
		denseCands  []Candidate
		sparseCands []Candidate
	)
	switch method {
	case models.MethodDense:
		if denseCands, err = r.denseCandidates(ctx, req.Query, fetch); err != nil {
			return nil, err
		}
	case models.MethodSparse:
		if sparseCands, err = r.sparseCandidates(req.Query, fetch); err != nil {
			return nil, err
		}
	case models.MethodHybrid:
		var (
			wg      sync.WaitGroup
			errChan = make(chan error, 2)
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			cands, err := r.denseCandidates(ctx, req.Query, fetch)
			if err != nil {
				errChan <- err
				return
			}
			denseCands = cands
		}()
		go func() {
			defer wg.Done()
			cands, err := r.sparseCandidates(req.Query, fetch)
			if err != nil {
				errChan <- err
				return
			}
			sparseCands = cands
		}()
		wg.Wait()
		close(errChan)
		for err := range errChan {
			if err != nil {
				return nil, err
			}
		}
	}

	var denseWeight, sparseWeight float64
	switch method {
	case models.MethodDense:
		denseWeight = 1
	case models.MethodSparse:
		sparseWeight = 1
	default:
		denseWeight, sparseWeight = r.cfg.DenseWeight, r.cfg.SparseWeight
	}
	fused := Fuse(denseCands, sparseCands, denseWeight, sparseWeight)

	results := make([]models.RetrievalResult, 0, req.K)
	for _, f := range fused {
		if len(results) >= req.K {
			break
		}
		if req.MinScore > 0 && f.Score < req.MinScore {
			break
		}
		chunk, err := r.store.GetChunk(ctx, f.ID)
		if err != nil {
			r.logger.Warn("chunk missing from store", zap.String("chunk_id", f.ID), zap.Error(err))
			continue
		}
		results = append(results, models.RetrievalResult{
			ChunkID:     f.ID,
			Text:        chunk.Text,
			Source:      chunk.Source,
			Page:        chunk.Page,
			Offset:      chunk.Offset,
			DenseScore:  f.DenseScore,
			SparseScore: f.SparseScore,
			FusedScore:  f.Score,
			Method:      method,
		})
	}
	r.logger.Debug("retrieval complete",
		zap.String("method", string(method)),
		zap.Int("k", req.K),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)))
	return results, nil
}

func (r *Retriever) denseCandidates(ctx context.Context, query string, k int) ([]Candidate, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", models.ErrEmbeddingService, err)
	}
	hits, err := r.denseIndex.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	cands := make([]Candidate, len(hits))
	for i, h := range hits {
		cands[i] = Candidate{ID: h.ID, Offset: h.Offset, Score: h.Score}
	}
	return cands, nil
}

func (r *Retriever) sparseCandidates(query string, k int) ([]Candidate, error) {
	idx := r.sparse()
	if idx == nil || !idx.Ready() {
		return nil, fmt.Errorf("%w: sparse index not built", models.ErrIndexNotReady)
	}
	hits := idx.Query(query, k)
	cands := make([]Candidate, len(hits))
	for i, h := range hits {
		cands[i] = Candidate{ID: h.ID, Offset: h.Offset, Score: h.Score}
	}
	return cands, nil
}
