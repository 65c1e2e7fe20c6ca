// Package search provides hybrid retrieval (dense + sparse) with score fusion.
package search

import "sort"

// Candidate is a single per-method hit before fusion.
type Candidate struct {
	ID     string
	Offset int
	Score  float64
}

// Fused holds a chunk's normalized per-method scores and the weighted sum.
type Fused struct {
	ID          string
	Offset      int
	DenseScore  float64
	SparseScore float64
	Score       float64
}

// Normalize min-max scales scores to [0,1] over the candidate set. When all
// scores are equal (including a single candidate) every score becomes 1.0,
// so a lone strong hit is not zeroed out.
func Normalize(cands []Candidate) map[string]float64 {
	normalized := make(map[string]float64, len(cands))
	if len(cands) == 0 {
		return normalized
	}
	min, max := cands[0].Score, cands[0].Score
	for _, c := range cands {
		if c.Score < min {
			min = c.Score
		}
		if c.Score > max {
			max = c.Score
		}
	}
	for _, c := range cands {
		if max == min {
			normalized[c.ID] = 1.0
		} else {
			normalized[c.ID] = (c.Score - min) / (max - min)
		}
	}
	return normalized
}

// Fuse normalizes each candidate set independently, merges by chunk ID with a
// missing side scored 0, and ranks by the weighted sum. Ties are broken by
// lower chunk offset so rankings are deterministic.
func Fuse(denseCands, sparseCands []Candidate, denseWeight, sparseWeight float64) []Fused {
	denseScores := Normalize(denseCands)
	sparseScores := Normalize(sparseCands)

	merged := make(map[string]*Fused)
	for _, c := range denseCands {
		merged[c.ID] = &Fused{ID: c.ID, Offset: c.Offset, DenseScore: denseScores[c.ID]}
	}
	for _, c := range sparseCands {
		if f, ok := merged[c.ID]; ok {
			f.SparseScore = sparseScores[c.ID]
		} else {
			merged[c.ID] = &Fused{ID: c.ID, Offset: c.Offset, SparseScore: sparseScores[c.ID]}
		}
	}

	results := make([]Fused, 0, len(merged))
	for _, f := range merged {
		f.Score = denseWeight*f.DenseScore + sparseWeight*f.SparseScore
		results = append(results, *f)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Offset < results[j].Offset
	})
	return results
}
