package intent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Classifier Cascade Tests
// =============================================================================

// stubStage is a scriptable stage for cascade tests.
type stubStage struct {
	name     string
	priority int
	result   *StageResult
	err      error
	panics   bool
	calls    int
}

func (s *stubStage) Name() string  { return s.name }
func (s *stubStage) Priority() int { return s.priority }

func (s *stubStage) Classify(context.Context, string, Entities) (*StageResult, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func TestClassifier_StagesRunInPriorityOrder(t *testing.T) {
	var order []string
	mk := func(name string, prio int) Stage {
		return &recordingStage{name: name, priority: prio, order: &order}
	}

	c := NewClassifier(nil, mk("third", 30), mk("first", 10), mk("second", 20))
	c.Classify(context.Background(), "anything at all", nil)

	require.Equal(t, []string{"first", "second", "third"}, order)
}

type recordingStage struct {
	name     string
	priority int
	order    *[]string
}

func (s *recordingStage) Name() string  { return s.name }
func (s *recordingStage) Priority() int { return s.priority }

func (s *recordingStage) Classify(context.Context, string, Entities) (*StageResult, error) {
	*s.order = append(*s.order, s.name)
	return nil, nil
}

func TestClassifier_ErrorEscalatesToNextStage(t *testing.T) {
	failing := &stubStage{name: "a", priority: 10, err: fmt.Errorf("stage down")}
	deciding := &stubStage{name: "b", priority: 20, result: decisive(IntentTroubleshoot, 0.8, "b")}

	c := NewClassifier(nil, failing, deciding)
	res := c.Classify(context.Background(), "something broke", nil)

	assert.Equal(t, IntentTroubleshoot, res.Intent)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, deciding.calls)
}

func TestClassifier_DecisiveStageShortCircuits(t *testing.T) {
	first := &stubStage{name: "a", priority: 10, result: decisive(IntentNavigateQuiz, 0.9, "a")}
	second := &stubStage{name: "b", priority: 20, result: decisive(IntentOffTopic, 0.9, "b")}

	c := NewClassifier(nil, first, second)
	res := c.Classify(context.Background(), "take a quiz", nil)

	assert.Equal(t, IntentNavigateQuiz, res.Intent)
	assert.Zero(t, second.calls, "later stage should not run after a decision")
}

func TestClassifier_TerminalFallback(t *testing.T) {
	undecided := &stubStage{name: "a", priority: 10, result: provisional(IntentExplainConcept, 0.4, "a")}

	c := NewClassifier(nil, undecided)
	res := c.Classify(context.Background(), "mumble mumble", nil)

	assert.Equal(t, IntentGeneralHelp, res.Intent)
	assert.InDelta(t, 0.50, res.Confidence, 0.001)
	assert.Equal(t, "default", res.Method)
}

func TestClassifier_NeverPanics(t *testing.T) {
	exploding := &stubStage{name: "a", priority: 10, panics: true}

	c := NewClassifier(nil, exploding)

	var res Result
	assert.NotPanics(t, func() {
		res = c.Classify(context.Background(), "anything", nil)
	})
	assert.Equal(t, IntentGeneralHelp, res.Intent)
	assert.InDelta(t, 0.50, res.Confidence, 0.001)
}

func TestClassifier_EmptyMessageFallsBack(t *testing.T) {
	stage := &stubStage{name: "a", priority: 10, result: decisive(IntentNavigateCourse, 0.9, "a")}

	c := NewClassifier(nil, stage)
	res := c.Classify(context.Background(), "   ", nil)

	assert.Equal(t, IntentGeneralHelp, res.Intent)
	assert.Zero(t, stage.calls, "no stage should run on an empty message")
}

func TestClassifier_EntitiesAttachedRegardlessOfDecidingStage(t *testing.T) {
	// A later decisive stub produces the intent, yet the entities come
	// from extraction, which runs before any stage.
	deciding := &stubStage{name: "a", priority: 10, result: decisive(IntentCreateQuiz, 0.8, "a")}

	c := NewClassifier(nil, deciding)
	res := c.Classify(context.Background(), "weird phrasing python ahead", nil)

	assert.Equal(t, IntentCreateQuiz, res.Intent)
	assert.Contains(t, res.Entities.Topics, "python")
}

func TestClassifier_EndToEndLearnPython(t *testing.T) {
	c := NewClassifier(nil, NewPatternStage())
	res := c.Classify(context.Background(), "I want to learn Python", nil)

	assert.Equal(t, IntentNavigateCourse, res.Intent)
	assert.GreaterOrEqual(t, res.Confidence, 0.90)
	assert.Equal(t, []string{"python"}, res.Entities.Topics)
}

func TestClassifier_StatsCountDecisionsAndFallbacks(t *testing.T) {
	deciding := &stubStage{name: "a", priority: 10, result: decisive(IntentTroubleshoot, 0.8, "pattern")}

	c := NewClassifier(nil, deciding)
	c.Classify(context.Background(), "my quiz will not load", nil)
	c.Classify(context.Background(), "my quiz will not load", nil)
	c.Classify(context.Background(), "   ", nil)

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.Classified)
	assert.Equal(t, uint64(1), stats.Fallbacks)
	assert.Equal(t, uint64(2), stats.ByMethod["pattern"])
	assert.Equal(t, uint64(1), stats.ByMethod["default"])
}
