package intent

// Intent labels what the user wants from the assistant.
type Intent string

const (
	IntentNavigateCourse   Intent = "navigate_course"
	IntentNavigateQuiz     Intent = "navigate_quiz"
	IntentCreateQuiz       Intent = "create_quiz"
	IntentCreateCourse     Intent = "create_course"
	IntentExplainConcept   Intent = "explain_concept"
	IntentTroubleshoot     Intent = "troubleshoot"
	IntentSubscriptionInfo Intent = "subscription_info"
	IntentGeneralHelp      Intent = "general_help"
	IntentOffTopic         Intent = "off_topic"
)

var allIntents = []Intent{
	IntentNavigateCourse,
	IntentNavigateQuiz,
	IntentCreateQuiz,
	IntentCreateCourse,
	IntentExplainConcept,
	IntentTroubleshoot,
	IntentSubscriptionInfo,
	IntentGeneralHelp,
	IntentOffTopic,
}

// ParseIntent converts a string label to an Intent.
func ParseIntent(s string) (Intent, bool) {
	for _, in := range allIntents {
		if string(in) == s {
			return in, true
		}
	}
	return "", false
}

// AllIntents returns every known intent label.
func AllIntents() []Intent {
	out := make([]Intent, len(allIntents))
	copy(out, allIntents)
	return out
}

// Difficulty is a normalized difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Entities holds structured values extracted from free text.
type Entities struct {
	Topics     []string   `json:"topics"`
	QuizTypes  []string   `json:"quiz_types"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Quantity   int        `json:"quantity"`
}

// Merge folds values from another extraction into this one. Existing
// values win; topics and quiz types are unioned.
func (e *Entities) Merge(other *Entities) {
	if other == nil {
		return
	}
	e.Topics = unionStrings(e.Topics, other.Topics)
	e.QuizTypes = unionStrings(e.QuizTypes, other.QuizTypes)
	if e.Difficulty == "" {
		e.Difficulty = other.Difficulty
	}
	if e.Quantity == 0 {
		e.Quantity = other.Quantity
	}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := a
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Result is the outcome of classifying one message. Confidence is
// comparable across all classification stages.
type Result struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	Method     string   `json:"method,omitempty"`
}

// UserContext carries the requesting user's state into classification.
type UserContext struct {
	UserID        string
	Authenticated bool
}
