package intent

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CentroidStage Unit Tests
// =============================================================================

// axisEmbedder maps known phrases onto unit axis vectors so similarity
// is exact and predictable.
type axisEmbedder struct {
	axes map[string]int
	dim  int
}

func newAxisEmbedder(dim int) *axisEmbedder {
	return &axisEmbedder{axes: make(map[string]int), dim: dim}
}

func (e *axisEmbedder) assign(text string, axis int) {
	e.axes[text] = axis
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	axis, ok := e.axes[text]
	if !ok {
		return nil, fmt.Errorf("unknown text %q", text)
	}
	vec := make([]float32, e.dim)
	vec[axis] = 1
	return vec, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func TestCentroidStage_TrainAndClassify(t *testing.T) {
	embedder := newAxisEmbedder(4)
	embedder.assign("take a quiz", 0)
	embedder.assign("start a test", 0)
	embedder.assign("explain closures", 1)
	embedder.assign("quiz time please", 0)

	stage := NewCentroidStage(embedder, 0.70)
	err := stage.Train(context.Background(), []Sample{
		{Text: "take a quiz", Intent: IntentNavigateQuiz},
		{Text: "start a test", Intent: IntentNavigateQuiz},
		{Text: "explain closures", Intent: IntentExplainConcept},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stage.CentroidCount())

	res, err := stage.Classify(context.Background(), "quiz time please", Entities{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, IntentNavigateQuiz, res.Intent)
	assert.True(t, res.Decisive, "perfect similarity should clear the threshold")
	assert.InDelta(t, 1.0, res.Confidence, 0.001)
}

func TestCentroidStage_UntrainedEscalates(t *testing.T) {
	stage := NewCentroidStage(newAxisEmbedder(4), 0.70)

	res, err := stage.Classify(context.Background(), "anything", Entities{})
	require.NoError(t, err)
	assert.Nil(t, res, "untrained stage should pass the message along")
}

func TestCentroidStage_EmbedErrorSurfaces(t *testing.T) {
	embedder := newAxisEmbedder(4)
	embedder.assign("known", 0)

	stage := NewCentroidStage(embedder, 0.70)
	stage.SetCentroids(map[Intent][]float32{IntentNavigateQuiz: {1, 0, 0, 0}})

	_, err := stage.Classify(context.Background(), "unknown text", Entities{})
	assert.Error(t, err, "embedding failure should escalate via the cascade's error path")
}

func TestCentroidStage_BelowThresholdIsProvisional(t *testing.T) {
	embedder := newAxisEmbedder(4)
	embedder.assign("sideways", 1)

	stage := NewCentroidStage(embedder, 0.70)
	// Centroid at 45 degrees from axis 1: similarity ~0.707... use a
	// centroid giving similarity clearly below threshold instead.
	stage.SetCentroids(map[Intent][]float32{
		IntentExplainConcept: {1, 0.5, 0, 0},
	})

	res, err := stage.Classify(context.Background(), "sideways", Entities{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, IntentExplainConcept, res.Intent)
	assert.False(t, res.Decisive)
	assert.Less(t, res.Confidence, 0.70)
}

func TestCentroidStage_TrainRejectsEmptySampleSet(t *testing.T) {
	stage := NewCentroidStage(newAxisEmbedder(4), 0.70)
	assert.Error(t, stage.Train(context.Background(), nil))
}

func TestCentroids_SaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centroids.json")

	want := map[Intent][]float32{
		IntentNavigateQuiz:   {1, 0, 0},
		IntentExplainConcept: {0, 1, 0},
	}
	require.NoError(t, SaveCentroids(path, want))

	got, err := LoadCentroids(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
