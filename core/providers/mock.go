package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// MockEmbedder produces deterministic vectors derived from a hash of the
// input text. It backs local development and tests where no embedding
// API is available. Vectors are unit length, so cosine scores stay in
// a sensible range, but they carry no semantic signal.
type MockEmbedder struct {
	dim int
}

// NewMockEmbedder creates a mock embedder emitting vectors of the given
// dimensionality.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 512
	}
	return &MockEmbedder{dim: dim}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, m.dim)

	seed := sha256.Sum256([]byte(text))
	var norm float64
	for i := range vec {
		var block [40]byte
		copy(block[:], seed[:])
		binary.LittleEndian.PutUint64(block[32:], uint64(i))
		h := sha256.Sum256(block[:])
		v := float32(binary.LittleEndian.Uint32(h[:4]))/float32(math.MaxUint32) - 0.5
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (m *MockEmbedder) Dimension() int {
	return m.dim
}
