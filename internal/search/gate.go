package search

import (
	"fmt"
	"strings"

	"github.com/clinicore/medsearch/internal/models"
)

// IsSufficient reports whether the top-ranked result's fused score meets the
// threshold. An empty result set is never sufficient.
func IsSufficient(results []models.RetrievalResult, threshold float64) bool {
	if len(results) == 0 {
		return false
	}
	return results[0].FusedScore >= threshold
}

// SelectContext formats up to k results as labeled blocks, in ranking order.
// The block is the exact text handed to a downstream answer synthesizer.
func SelectContext(results []models.RetrievalResult, k int) string {
	if k > len(results) {
		k = len(results)
	}
	blocks := make([]string, 0, k)
	for i, r := range results[:k] {
		blocks = append(blocks, fmt.Sprintf("[Source %d - Page %d, Relevance: %.2f, Method: %s]\n%s",
			i+1, r.Page, r.FusedScore, r.Method, r.Text))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
