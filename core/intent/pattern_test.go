package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// PatternStage Unit Tests
// =============================================================================

func classifyPattern(t *testing.T, message string) *StageResult {
	t.Helper()
	stage := NewPatternStage()
	res, err := stage.Classify(context.Background(), message, ExtractEntities(message))
	require.NoError(t, err)
	return res
}

func TestPatternStage_GreetingShortCircuit(t *testing.T) {
	greetings := []string{"hi", "Hello", "hey!", "HOWDY", "good morning", "hey there!!"}

	for _, msg := range greetings {
		res := classifyPattern(t, msg)
		require.NotNil(t, res, "greeting %q should produce a result", msg)
		assert.Equal(t, IntentOffTopic, res.Intent, "greeting %q", msg)
		assert.GreaterOrEqual(t, res.Confidence, 0.95, "greeting %q", msg)
		assert.True(t, res.Decisive, "greeting %q should short-circuit", msg)
	}
}

func TestPatternStage_GreetingInsideSentenceDoesNotShortCircuit(t *testing.T) {
	res := classifyPattern(t, "hello, can you explain recursion?")
	require.NotNil(t, res)
	assert.NotEqual(t, IntentOffTopic, res.Intent)
}

func TestPatternStage_OffTopicVeto(t *testing.T) {
	res := classifyPattern(t, "tell me a joke about cats")
	require.NotNil(t, res)
	assert.Equal(t, IntentOffTopic, res.Intent)
	assert.InDelta(t, 0.90, res.Confidence, 0.001)
	assert.True(t, res.Decisive)
}

func TestPatternStage_VetoOverriddenByTechnicalSignal(t *testing.T) {
	// "module" and "code" rescue "weather"; the off-topic group must not
	// win the ranking afterwards either.
	res := classifyPattern(t, "how do I use a weather module in my code")
	require.NotNil(t, res)
	assert.NotEqual(t, IntentOffTopic, res.Intent)
	assert.True(t, res.Decisive)
}

func TestPatternStage_RescuedKeywordEscalatesWithoutContentMatch(t *testing.T) {
	// "library" and "app" rescue "music" from the veto; with no content
	// pattern matching, the stage escalates instead of deciding off-topic.
	res := classifyPattern(t, "music library for my app")
	assert.Nil(t, res)
}

func TestPatternStage_VetoOverriddenByDetectedTopic(t *testing.T) {
	// "python" counts as a technical signal even though "weather" is an
	// off-topic keyword.
	res := classifyPattern(t, "python weather data")
	require.NotNil(t, res)
	assert.NotEqual(t, IntentOffTopic, res.Intent)
}

func TestPatternStage_CourseNavigationWithTopic(t *testing.T) {
	res := classifyPattern(t, "show me courses on React")
	require.NotNil(t, res)
	assert.Equal(t, IntentNavigateCourse, res.Intent)
	assert.GreaterOrEqual(t, res.Confidence, 0.90)
	assert.True(t, res.Decisive)
}

func TestPatternStage_TopicWithLearningKeyword(t *testing.T) {
	res := classifyPattern(t, "I want to learn Python")
	require.NotNil(t, res)
	assert.Equal(t, IntentNavigateCourse, res.Intent)
	assert.GreaterOrEqual(t, res.Confidence, 0.90)
}

func TestPatternStage_BareTopicDefaultsToNavigation(t *testing.T) {
	res := classifyPattern(t, "kubernetes")
	require.NotNil(t, res)
	assert.Equal(t, IntentNavigateCourse, res.Intent)
	assert.InDelta(t, 0.90, res.Confidence, 0.001)
}

func TestPatternStage_CreateQuizWithTopic(t *testing.T) {
	res := classifyPattern(t, "create a quiz about golang")
	require.NotNil(t, res)
	assert.Equal(t, IntentCreateQuiz, res.Intent)
	assert.True(t, res.Decisive)
}

func TestPatternStage_Troubleshoot(t *testing.T) {
	res := classifyPattern(t, "my build keeps failing with a weird error")
	require.NotNil(t, res)
	assert.Equal(t, IntentTroubleshoot, res.Intent)
	assert.GreaterOrEqual(t, res.Confidence, 0.65)
}

func TestPatternStage_SubscriptionInfo(t *testing.T) {
	res := classifyPattern(t, "how much does the premium plan cost")
	require.NotNil(t, res)
	assert.Equal(t, IntentSubscriptionInfo, res.Intent)
}

func TestPatternStage_NoMatchReturnsNil(t *testing.T) {
	res := classifyPattern(t, "asdf qwerty zxcv")
	assert.Nil(t, res, "gibberish should escalate to the next stage")
}

// =============================================================================
// Entity Extraction Tests
// =============================================================================

func TestExtractEntities_Topics(t *testing.T) {
	ents := ExtractEntities("courses on React and machine learning")

	assert.Contains(t, ents.Topics, "react")
	assert.Contains(t, ents.Topics, "machine learning")
}

func TestExtractEntities_TopicAliases(t *testing.T) {
	ents := ExtractEntities("any good k8s or js material?")

	assert.Contains(t, ents.Topics, "kubernetes")
	assert.Contains(t, ents.Topics, "javascript")
}

func TestExtractEntities_QuantityAndDifficulty(t *testing.T) {
	ents := ExtractEntities("make me a hard quiz with 5 questions about golang")

	assert.Equal(t, 5, ents.Quantity)
	assert.Equal(t, DifficultyHard, ents.Difficulty)
	assert.Contains(t, ents.Topics, "golang")
}

func TestExtractEntities_DifficultySynonyms(t *testing.T) {
	assert.Equal(t, DifficultyEasy, ExtractEntities("a beginner course").Difficulty)
	assert.Equal(t, DifficultyMedium, ExtractEntities("something intermediate").Difficulty)
	assert.Equal(t, DifficultyHard, ExtractEntities("an advanced one please").Difficulty)
}

func TestExtractEntities_QuizTypes(t *testing.T) {
	ents := ExtractEntities("a multiple choice quiz with some flashcards")

	assert.Contains(t, ents.QuizTypes, "multiple_choice")
	assert.Contains(t, ents.QuizTypes, "flashcard")
}

func TestExtractEntities_EmptyMessage(t *testing.T) {
	ents := ExtractEntities("")

	assert.Empty(t, ents.Topics)
	assert.Empty(t, ents.QuizTypes)
	assert.Equal(t, Difficulty(""), ents.Difficulty)
	assert.Zero(t, ents.Quantity)
}

func TestBestMatch_TieBreaksOnMatchCount(t *testing.T) {
	// "explain_concept" sorts first alphabetically, so only the match
	// count can put navigate_quiz ahead at equal confidence.
	matches := map[Intent]*patternMatch{
		IntentExplainConcept: {intent: IntentExplainConcept, confidence: 0.80, matched: 1},
		IntentNavigateQuiz:   {intent: IntentNavigateQuiz, confidence: 0.80, matched: 3},
	}

	best := bestMatch(matches)
	require.NotNil(t, best)
	assert.Equal(t, IntentNavigateQuiz, best.intent)
}
