package search

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizeMinMax(t *testing.T) {
	cands := []Candidate{
		{ID: "a", Score: 2.0},
		{ID: "b", Score: 6.0},
		{ID: "c", Score: 4.0},
	}
	norm := Normalize(cands)
	if !almostEqual(norm["a"], 0.0) || !almostEqual(norm["b"], 1.0) || !almostEqual(norm["c"], 0.5) {
		t.Errorf("unexpected normalization: %v", norm)
	}
}

func TestNormalizeAllEqual(t *testing.T) {
	cands := []Candidate{
		{ID: "a", Score: 0.42},
		{ID: "b", Score: 0.42},
	}
	norm := Normalize(cands)
	for id, s := range norm {
		if !almostEqual(s, 1.0) {
			t.Errorf("%s: got %f, want 1.0", id, s)
		}
	}
}

func TestNormalizeSingleCandidate(t *testing.T) {
	norm := Normalize([]Candidate{{ID: "only", Score: 0.0001}})
	if !almostEqual(norm["only"], 1.0) {
		t.Errorf("single candidate should normalize to 1.0, got %f", norm["only"])
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if norm := Normalize(nil); len(norm) != 0 {
		t.Errorf("expected empty map, got %v", norm)
	}
}

// A chunk strong in one method can outrank a chunk moderately good in both:
// dense 0.9/sparse 0.1 fuses to 0.66 and beats dense 0.5/sparse 0.95 at 0.635
// under 0.7/0.3 weights.
func TestFuseWeightedRanking(t *testing.T) {
	// lo and hi anchor the min-max range so a and b keep their raw scores
	// after normalization.
	dense := []Candidate{
		{ID: "lo", Offset: 900, Score: 0.0},
		{ID: "hi", Offset: 901, Score: 1.0},
		{ID: "a", Offset: 0, Score: 0.9},
		{ID: "b", Offset: 100, Score: 0.5},
	}
	sparseC := []Candidate{
		{ID: "lo", Offset: 900, Score: 0.0},
		{ID: "hi", Offset: 901, Score: 1.0},
		{ID: "a", Offset: 0, Score: 0.1},
		{ID: "b", Offset: 100, Score: 0.95},
	}
	fused := Fuse(dense, sparseC, 0.7, 0.3)

	scores := make(map[string]float64)
	positions := make(map[string]int)
	for i, f := range fused {
		scores[f.ID] = f.Score
		positions[f.ID] = i
	}
	if !almostEqual(scores["a"], 0.66) {
		t.Errorf("a: fused = %f, want 0.66", scores["a"])
	}
	if !almostEqual(scores["b"], 0.635) {
		t.Errorf("b: fused = %f, want 0.635", scores["b"])
	}
	if positions["a"] > positions["b"] {
		t.Error("a should rank above b")
	}
}

func TestFuseMissingSideScoresZero(t *testing.T) {
	dense := []Candidate{
		{ID: "both", Offset: 0, Score: 1.0},
		{ID: "dense-only", Offset: 100, Score: 0.0},
	}
	sparseC := []Candidate{
		{ID: "both", Offset: 0, Score: 3.0},
		{ID: "sparse-only", Offset: 200, Score: 1.0},
	}
	fused := Fuse(dense, sparseC, 0.7, 0.3)
	for _, f := range fused {
		switch f.ID {
		case "dense-only":
			if f.SparseScore != 0 {
				t.Errorf("dense-only: sparse score = %f, want 0", f.SparseScore)
			}
		case "sparse-only":
			if f.DenseScore != 0 {
				t.Errorf("sparse-only: dense score = %f, want 0", f.DenseScore)
			}
		}
	}
}

func TestFuseTieBreakByOffset(t *testing.T) {
	dense := []Candidate{
		{ID: "late", Offset: 800, Score: 0.5},
		{ID: "early", Offset: 0, Score: 0.5},
	}
	fused := Fuse(dense, nil, 1.0, 0.0)
	if fused[0].ID != "early" {
		t.Errorf("equal scores should rank lower offset first, got %s", fused[0].ID)
	}
}

// With dense weight 1 and sparse weight 0 the hybrid ranking must equal the
// pure dense ranking.
func TestFuseDegeneratesToSingleMethod(t *testing.T) {
	dense := []Candidate{
		{ID: "a", Offset: 0, Score: 0.9},
		{ID: "b", Offset: 100, Score: 0.3},
		{ID: "c", Offset: 200, Score: 0.6},
	}
	sparseC := []Candidate{
		{ID: "b", Offset: 100, Score: 9.0},
		{ID: "c", Offset: 200, Score: 1.0},
	}
	fused := Fuse(dense, sparseC, 1.0, 0.0)
	got := make([]string, len(fused))
	for i, f := range fused {
		got[i] = f.ID
	}
	denseOnly := Fuse(dense, nil, 1.0, 0.0)
	for i, f := range denseOnly {
		if got[i] != f.ID {
			t.Fatalf("ranking diverges at %d: %s vs %s", i, got[i], f.ID)
		}
	}
}
