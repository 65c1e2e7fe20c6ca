package models

import "fmt"

// Method selects which index (or both) serves a retrieval.
type Method string

const (
	MethodDense  Method = "dense"
	MethodSparse Method = "sparse"
	MethodHybrid Method = "hybrid"
)

// ParseMethod validates a method string. Empty defaults to hybrid.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "":
		return MethodHybrid, nil
	case MethodDense, MethodSparse, MethodHybrid:
		return Method(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
}

// RetrievalResult is a single retrieval hit with provenance and scores.
// DenseScore and SparseScore are normalized per-method scores over the
// candidate set that served this query; for single-method retrievals only the
// matching side is set and FusedScore equals it. Transient: constructed fresh
// per query, never persisted.
type RetrievalResult struct {
	ChunkID     string  `json:"chunk_id"`
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	Page        int     `json:"page"`
	Offset      int     `json:"offset"`
	DenseScore  float64 `json:"dense_score,omitempty"`
	SparseScore float64 `json:"sparse_score,omitempty"`
	FusedScore  float64 `json:"fused_score"`
	Method      Method  `json:"method"`
}
