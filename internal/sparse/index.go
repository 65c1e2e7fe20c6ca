package sparse

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/clinicore/medsearch/internal/models"
)

// Standard BM25 constants; overridable through Params.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Params are the BM25 scoring constants.
type Params struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

// Result is a single keyword-ranked hit with the raw BM25 score.
type Result struct {
	ID     string
	Offset int
	Score  float64
}

// docInfo is per-chunk bookkeeping needed by the scorer.
type docInfo struct {
	Offset int `json:"offset"`
	Length int `json:"length"` // token count
}

// Index is a BM25-style inverted index over chunk tokens. Built once from a
// chunk corpus and read-only afterwards; Query is safe for concurrent callers.
type Index struct {
	params   Params
	docs     map[string]docInfo        // chunk ID -> info
	postings map[string]map[string]int // term -> chunk ID -> term frequency
	totalLen int
	built    bool
	mu       sync.RWMutex
}

// indexFile is the JSON persistence layout. The index is derived data,
// rebuildable from chunks; the only persistence contract is that a saved and
// reloaded index answers queries identically.
type indexFile struct {
	Params   Params                    `json:"params"`
	Docs     map[string]docInfo        `json:"docs"`
	Postings map[string]map[string]int `json:"postings"`
	TotalLen int                       `json:"total_len"`
}

// NewIndex creates an empty index with the given parameters. Zero params
// default to the standard constants.
func NewIndex(p Params) (*Index, error) {
	if p.K1 == 0 {
		p.K1 = DefaultK1
	}
	if p.B == 0 {
		p.B = DefaultB
	}
	if p.K1 < 0 {
		return nil, fmt.Errorf("%w: bm25 k1 must be positive, got %g", models.ErrInvalidConfiguration, p.K1)
	}
	if p.B < 0 || p.B > 1 {
		return nil, fmt.Errorf("%w: bm25 b must be in [0, 1], got %g", models.ErrInvalidConfiguration, p.B)
	}
	return &Index{
		params:   p,
		docs:     make(map[string]docInfo),
		postings: make(map[string]map[string]int),
	}, nil
}

// Build constructs an index over chunks. An empty corpus is a valid, if
// useless, state: the index answers every query with no results.
func Build(chunks []*models.Chunk, p Params) (*Index, error) {
	idx, err := NewIndex(p)
	if err != nil {
		return nil, err
	}
	for _, ch := range chunks {
		idx.add(ch)
	}
	idx.built = true
	return idx, nil
}

// Ready reports whether the index was built or loaded. An index that is
// ready but holds zero chunks answers queries with empty results rather
// than an error.
func (idx *Index) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.built
}

func (idx *Index) add(ch *models.Chunk) {
	tokens := Tokenize(ch.Text)
	idx.docs[ch.ID] = docInfo{Offset: ch.Offset, Length: len(tokens)}
	idx.totalLen += len(tokens)
	for _, tok := range tokens {
		m, ok := idx.postings[tok]
		if !ok {
			m = make(map[string]int)
			idx.postings[tok] = m
		}
		m[ch.ID]++
	}
}

// Query scores the corpus for the query text and returns the top-k chunks by
// descending BM25 score, ties broken by lower offset. Chunks matching no
// query term are omitted; an empty corpus yields an empty result.
func (idx *Index) Query(query string, k int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docs)
	if n == 0 || k <= 0 {
		return nil
	}
	avgLen := float64(idx.totalLen) / float64(n)
	if avgLen == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, term := range Tokenize(query) {
		plist, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := len(plist)
		// Okapi BM25 IDF with the +1 inside the log to keep it non-negative.
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		for id, tf := range plist {
			doc := idx.docs[id]
			denom := float64(tf) + idx.params.K1*(1-idx.params.B+idx.params.B*float64(doc.Length)/avgLen)
			scores[id] += idf * float64(tf) * (idx.params.K1 + 1) / denom
		}
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, Result{ID: id, Offset: idx.docs[id].Offset, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Offset < results[j].Offset
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Terms returns the number of distinct terms in the index.
func (idx *Index) Terms() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings)
}

// Save writes the index to path atomically (temp file + rename).
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.Marshal(indexFile{
		Params:   idx.params,
		Docs:     idx.docs,
		Postings: idx.postings,
		TotalLen: idx.totalLen,
	})
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sparse-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// Load reads an index from path. Fails with models.ErrIndexNotReady if the
// file does not exist.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: sparse index missing at %s", models.ErrIndexNotReady, path)
		}
		return nil, fmt.Errorf("read index file: %w", err)
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse index file: %w", err)
	}
	idx, err := NewIndex(f.Params)
	if err != nil {
		return nil, err
	}
	if f.Docs != nil {
		idx.docs = f.Docs
	}
	if f.Postings != nil {
		idx.postings = f.Postings
	}
	idx.totalLen = f.TotalLen
	idx.built = true
	return idx, nil
}
