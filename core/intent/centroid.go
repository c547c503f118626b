package intent

import (
	"context"
	"fmt"
	"sync"

	"github.com/brightpath/assistant/core/retrieval"
)

const (
	centroidPriority   = 20
	centroidMethodName = "centroid"

	defaultCentroidThreshold = 0.70
)

// Embedder generates text embeddings for the centroid stage.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Sample is one labelled training example.
type Sample struct {
	Text   string `json:"text" yaml:"text"`
	Intent Intent `json:"intent" yaml:"intent"`
}

// CentroidStage is the trainable statistical classifier: each intent is
// represented by the mean vector of its labelled examples, and a message
// is scored by cosine similarity against every centroid.
type CentroidStage struct {
	embedder  Embedder
	threshold float64

	mu        sync.RWMutex
	centroids map[Intent][]float32
}

// NewCentroidStage creates an untrained centroid stage. Until centroids
// are set the stage returns no result and the cascade escalates past it.
func NewCentroidStage(embedder Embedder, threshold float64) *CentroidStage {
	if threshold <= 0 {
		threshold = defaultCentroidThreshold
	}
	return &CentroidStage{
		embedder:  embedder,
		threshold: threshold,
		centroids: make(map[Intent][]float32),
	}
}

func (s *CentroidStage) Name() string  { return centroidMethodName }
func (s *CentroidStage) Priority() int { return centroidPriority }

// Train computes one centroid per intent from labelled samples. Samples
// are embedded in a single batch call. Retraining replaces centroids
// wholesale.
func (s *CentroidStage) Train(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no training samples")
	}
	if s.embedder == nil {
		return fmt.Errorf("no embedder configured")
	}

	texts := make([]string, len(samples))
	for i, sample := range samples {
		texts[i] = sample.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed training samples: %w", err)
	}
	if len(vectors) != len(samples) {
		return fmt.Errorf("embedding count mismatch: got %d for %d samples", len(vectors), len(samples))
	}

	centroids := computeCentroids(samples, vectors)

	s.mu.Lock()
	s.centroids = centroids
	s.mu.Unlock()

	return nil
}

func computeCentroids(samples []Sample, vectors [][]float32) map[Intent][]float32 {
	sums := make(map[Intent][]float32)
	counts := make(map[Intent]int)

	for i, sample := range samples {
		vec := vectors[i]
		if len(vec) == 0 {
			continue
		}
		sum, ok := sums[sample.Intent]
		if !ok {
			sum = make([]float32, len(vec))
			sums[sample.Intent] = sum
		}
		if len(sum) != len(vec) {
			continue
		}
		for j, v := range vec {
			sum[j] += v
		}
		counts[sample.Intent]++
	}

	centroids := make(map[Intent][]float32, len(sums))
	for in, sum := range sums {
		n := float32(counts[in])
		if n == 0 {
			continue
		}
		for j := range sum {
			sum[j] /= n
		}
		centroids[in] = sum
	}
	return centroids
}

// SetCentroids installs precomputed centroids, replacing any existing set.
func (s *CentroidStage) SetCentroids(centroids map[Intent][]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.centroids = make(map[Intent][]float32, len(centroids))
	for in, vec := range centroids {
		s.centroids[in] = vec
	}
}

// Centroids returns a copy of the current centroid set.
func (s *CentroidStage) Centroids() map[Intent][]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Intent][]float32, len(s.centroids))
	for in, vec := range s.centroids {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		out[in] = cp
	}
	return out
}

// CentroidCount returns the number of trained intents.
func (s *CentroidStage) CentroidCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.centroids)
}

func (s *CentroidStage) Classify(ctx context.Context, message string, _ Entities) (*StageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.embedder == nil || message == "" {
		return nil, nil
	}

	s.mu.RLock()
	trained := len(s.centroids) > 0
	s.mu.RUnlock()
	if !trained {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("embed message: %w", err)
	}

	best, conf := s.bestCentroid(vec)
	if best == "" {
		return nil, nil
	}

	if conf >= s.threshold {
		return decisive(best, conf, centroidMethodName), nil
	}
	return provisional(best, conf, centroidMethodName), nil
}

func (s *CentroidStage) bestCentroid(vec []float32) (Intent, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best Intent
	var bestSim float64

	for in, centroid := range s.centroids {
		sim := retrieval.CosineSimilarity(vec, centroid)
		if sim > bestSim {
			best = in
			bestSim = sim
		}
	}

	return best, clampConfidence(bestSim)
}

// clampConfidence maps cosine similarity onto the [0,1] confidence scale
// shared by every stage.
func clampConfidence(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
