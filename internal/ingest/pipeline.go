package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/clinicore/medsearch/internal/config"
	"github.com/clinicore/medsearch/internal/dense"
	"github.com/clinicore/medsearch/internal/docid"
	"github.com/clinicore/medsearch/internal/embedding"
	"github.com/clinicore/medsearch/internal/extract"
	"github.com/clinicore/medsearch/internal/models"
	"github.com/clinicore/medsearch/internal/sparse"
	"github.com/clinicore/medsearch/internal/storage"
)

// Pipeline extracts, chunks, embeds, and indexes documents. It owns the
// sparse index, which is rebuilt over the whole corpus after every ingest;
// Sparse returns the current build for queriers.
type Pipeline struct {
	store      storage.Storage
	embedder   embedding.Embedder
	denseIndex dense.Index
	chunker    *Chunker
	extractor  *extract.Extractor
	cfg        *config.Config
	logger     *zap.Logger

	sparseMu    sync.RWMutex
	sparseIndex *sparse.Index
}

// NewPipeline creates an ingestion pipeline with the given dependencies.
func NewPipeline(
	store storage.Storage,
	embedder embedding.Embedder,
	denseIndex dense.Index,
	cfg *config.Config,
	logger *zap.Logger,
) (*Pipeline, error) {
	chunker, err := NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	empty, err := sparse.NewIndex(sparse.Params{K1: cfg.Search.BM25K1, B: cfg.Search.BM25B})
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:       store,
		embedder:    embedder,
		denseIndex:  denseIndex,
		chunker:     chunker,
		extractor:   extract.NewExtractor(),
		cfg:         cfg,
		logger:      logger,
		sparseIndex: empty,
	}, nil
}

// Sparse returns the current sparse index build.
func (p *Pipeline) Sparse() *sparse.Index {
	p.sparseMu.RLock()
	defer p.sparseMu.RUnlock()
	return p.sparseIndex
}

// Load restores persisted indexes from the configured paths. Missing files
// leave the indexes empty; queries then fail with ErrIndexNotReady until an
// ingest runs.
func (p *Pipeline) Load() error {
	if err := p.denseIndex.Load(p.cfg.Storage.DenseIndexPath); err != nil {
		return fmt.Errorf("load dense index: %w", err)
	}
	idx, err := sparse.Load(p.cfg.Storage.SparseIndexPath)
	if err != nil {
		if errors.Is(err, models.ErrIndexNotReady) {
			return nil
		}
		return fmt.Errorf("load sparse index: %w", err)
	}
	p.sparseMu.Lock()
	p.sparseIndex = idx
	p.sparseMu.Unlock()
	p.logger.Info("indexes loaded",
		zap.Int("dense_vectors", p.denseIndex.Size()),
		zap.Int("sparse_chunks", idx.Size()))
	return nil
}

// IngestFile ingests a single file and persists the updated indexes.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*models.Document, error) {
	doc, err := p.ingestOne(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := p.finalize(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}

// IngestDirectory walks dir and ingests every regular file whose extension
// is in the configured list. Unreadable files are logged and skipped; the
// indexes are persisted once at the end. Returns the number of files
// ingested.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	count := 0
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), p.cfg.Ingest.Extensions) {
			return nil
		}
		if _, err := p.ingestOne(ctx, path); err != nil {
			if errors.Is(err, models.ErrDocumentUnreadable) {
				p.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
				return nil
			}
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	if err := p.finalize(ctx); err != nil {
		return count, err
	}
	return count, nil
}

// ingestOne extracts, chunks, embeds, and stores one file, replacing any
// previous ingest of the same path. The sparse rebuild and index persistence
// are deferred to finalize.
func (p *Pipeline) ingestOne(ctx context.Context, path string) (*models.Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	pages, err := p.extractor.Extract(absPath)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i].Text = Preprocess(pages[i].Text)
	}
	doc := &models.Document{
		ID:        docid.ForPath(absPath),
		Source:    filepath.Base(absPath),
		Path:      absPath,
		Pages:     pages,
		PageCount: len(pages),
	}
	chunks := p.chunker.Chunk(doc)
	if err := p.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	// Replace any previous ingest of this document.
	old, err := p.store.ListChunksByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list previous chunks: %w", err)
	}
	if len(old) > 0 {
		oldIDs := make([]string, len(old))
		for i, ch := range old {
			oldIDs[i] = ch.ID
		}
		if err := p.denseIndex.Remove(ctx, oldIDs); err != nil {
			return nil, fmt.Errorf("remove stale vectors: %w", err)
		}
		if err := p.store.DeleteChunksByDocumentID(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("delete previous chunks: %w", err)
		}
	}
	_ = p.store.DeleteDocument(ctx, doc.ID)

	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if len(chunks) == 0 {
		p.logger.Warn("document has no text", zap.String("path", absPath))
		return doc, nil
	}
	if err := p.store.BatchCreateChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	entries := make([]dense.Entry, len(chunks))
	for i, ch := range chunks {
		entries[i] = dense.Entry{ID: ch.ID, Offset: ch.Offset, Vector: ch.Embedding}
	}
	if err := p.denseIndex.Add(ctx, entries); err != nil {
		return nil, fmt.Errorf("index vectors: %w", err)
	}
	p.logger.Debug("file ingested",
		zap.String("path", absPath),
		zap.String("doc_id", doc.ID),
		zap.Int("pages", doc.PageCount),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// embedChunks computes embeddings for all chunks with a bounded worker pool.
// Any embedding failure aborts the whole build.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	concurrency := p.cfg.Ingest.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, concurrency)
		mu       sync.Mutex
		firstErr error
	)
	for _, ch := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(ch *models.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			vec, err := p.embedder.Embed(ctx, ch.Text)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: chunk %s: %v", models.ErrEmbeddingService, ch.ID, err)
					cancel()
				}
				mu.Unlock()
				return
			}
			ch.Embedding = vec
		}(ch)
	}
	wg.Wait()
	return firstErr
}

// finalize rebuilds the sparse index over the whole corpus and persists both
// indexes.
func (p *Pipeline) finalize(ctx context.Context) error {
	all, err := p.store.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	idx, err := sparse.Build(all, sparse.Params{K1: p.cfg.Search.BM25K1, B: p.cfg.Search.BM25B})
	if err != nil {
		return fmt.Errorf("build sparse index: %w", err)
	}
	p.sparseMu.Lock()
	p.sparseIndex = idx
	p.sparseMu.Unlock()

	if err := p.denseIndex.Save(p.cfg.Storage.DenseIndexPath); err != nil {
		return fmt.Errorf("save dense index: %w", err)
	}
	if err := idx.Save(p.cfg.Storage.SparseIndexPath); err != nil {
		return fmt.Errorf("save sparse index: %w", err)
	}
	p.logger.Info("indexes updated",
		zap.Int("dense_vectors", p.denseIndex.Size()),
		zap.Int("sparse_chunks", idx.Size()))
	return nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext = strings.ToLower(ext)
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}
