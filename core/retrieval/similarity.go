package retrieval

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// CosineSimilarity computes dot(a,b) / (|a|·|b|). It returns 0 for
// mismatched lengths or zero-magnitude vectors rather than dividing by
// zero; stored vectors should never mismatch given the store's
// dimensionality invariant, but the function must not fail on bad input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	dot := float64(vek32.Dot(a, b))
	normA := math.Sqrt(float64(vek32.Dot(a, a)))
	normB := math.Sqrt(float64(vek32.Dot(b, b)))

	denom := normA * normB
	if denom == 0 {
		return 0
	}
	return dot / denom
}
