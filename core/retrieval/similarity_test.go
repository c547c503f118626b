package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Cosine Similarity Tests
// =============================================================================

func TestCosineSimilarity_Identity(t *testing.T) {
	v := []float32{0.3, -0.7, 0.2, 0.9}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 4}
	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-9)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}
	assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-6)
}

func TestCosineSimilarity_MismatchedLengths(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1, 2}
	assert.Zero(t, CosineSimilarity(a, b))
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	assert.Zero(t, CosineSimilarity(a, b))
	assert.Zero(t, CosineSimilarity(b, a))
	assert.Zero(t, CosineSimilarity(a, a))
}

func TestCosineSimilarity_Empty(t *testing.T) {
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{}, []float32{}))
}
