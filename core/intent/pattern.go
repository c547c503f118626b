package intent

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

const (
	patternPriority   = 10
	patternMethodName = "pattern"

	greetingConfidence = 0.95
	offTopicConfidence = 0.90
	overrideConfidence = 0.90

	patternBaseConfidence = 0.75
	patternMaxConfidence  = 0.95
	patternAcceptFloor    = 0.65

	actionVerbBoost  = 0.10
	specificityBoost = 0.10
	specificityScale = 300.0
)

// greetingTokens is the closed set of messages answered without any
// downstream work.
var greetingTokens = map[string]bool{
	"hi":             true,
	"hello":          true,
	"hey":            true,
	"yo":             true,
	"sup":            true,
	"howdy":          true,
	"hiya":           true,
	"heya":           true,
	"greetings":      true,
	"hola":           true,
	"good morning":   true,
	"good afternoon": true,
	"good evening":   true,
	"hi there":       true,
	"hello there":    true,
	"hey there":      true,
}

var offTopicKeywords = []string{
	"weather", "joke", "movie", "film", "song", "music", "sports",
	"football", "recipe", "cooking", "restaurant", "dating", "politics",
	"celebrity", "horoscope", "lottery", "gossip", "vacation",
}

// technicalSignals rescue messages that mention an off-topic keyword in a
// technical sense, e.g. "python weather module".
var technicalSignals = []string{
	"module", "framework", "programming", "code", "coding", "library",
	"package", "api", "function", "class", "syntax", "compile", "debug",
	"script", "software", "developer", "algorithm", "app", "tutorial",
}

var actionVerbs = []string{
	"show", "find", "browse", "list", "view", "open", "create",
	"generate", "make", "build", "explain", "fix", "take", "start",
}

var learningKeywords = regexp.MustCompile(`\b(learn|learning|study|studying|teach|tutorial|master)\b`)

// patternGroups maps each intent to its regular-expression group. One
// group per intent; a message may match several groups.
var patternGroups = map[Intent][]*regexp.Regexp{
	IntentNavigateCourse: compileGroup(
		`\b(show|find|browse|list|view|see)\b.{0,40}\bcourses?\b`,
		`\bcourses?\b.{0,20}\b(on|about|for|in)\b`,
		`\b(i want to|i'?d like to|help me) learn\b`,
		`\bwhat courses\b`,
		`\b(learn|study|studying)\b`,
	),
	IntentNavigateQuiz: compileGroup(
		`\b(show|find|browse|list|take|start)\b.{0,40}\b(quiz|quizzes|test|tests)\b`,
		`\bquiz(zes)?\b.{0,20}\b(on|about|for)\b`,
		`\bpractice\b.{0,30}\bquestions?\b`,
		`\b(test|quiz) (me|myself)\b`,
	),
	IntentCreateQuiz: compileGroup(
		`\b(create|generate|make|build|write)\b.{0,40}\b(quiz|quizzes|test|questions?)\b`,
		`\bquiz me on\b`,
		`\bnew quiz\b`,
	),
	IntentCreateCourse: compileGroup(
		`\b(create|generate|make|build|design)\b.{0,40}\bcourses?\b`,
		`\bnew course\b`,
	),
	IntentExplainConcept: compileGroup(
		`\b(what is|what are|what does|explain|define)\b`,
		`\bhow (does|do|is|are)\b`,
		`\btell me about\b`,
		`\bdifference between\b`,
		`\bmeaning of\b`,
	),
	IntentTroubleshoot: compileGroup(
		`\b(error|bug|exception|crash|broken|stacktrace|traceback)\b`,
		`\b(not working|doesn'?t work|won'?t work|keeps failing|fails?|failing)\b`,
		`\b(fix|debug|solve|resolve)\b.{0,40}\b(error|bug|issue|problem|code)\b`,
		`\bwhy (is|does|won'?t|isn'?t|can'?t)\b`,
	),
	IntentSubscriptionInfo: compileGroup(
		`\b(subscription|subscribe|pricing|plans?|billing|premium|upgrade)\b`,
		`\bhow much (does|is|will)\b`,
		`\b(cost|price)s?\b`,
	),
	IntentGeneralHelp: compileGroup(
		`\bhelp\b`,
		`\bhow (do|can) i\b`,
		`\b(getting started|get started)\b`,
		`\bwhere (do|can) i\b`,
		`\bwhat can you do\b`,
	),
	IntentOffTopic: compileGroup(
		`\b(weather|joke|movie|film|song|music|recipe|horoscope|lottery)\b`,
	),
}

func compileGroup(patterns ...string) []*regexp.Regexp {
	group := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err == nil {
			group = append(group, re)
		}
	}
	return group
}

// PatternStage implements the first, purely lexical link in the cascade:
// greeting short-circuit, off-topic veto with technical override, the
// per-intent regex table, and the topic-priority override.
type PatternStage struct{}

// NewPatternStage creates the pattern stage. Patterns are compiled once
// at package init.
func NewPatternStage() *PatternStage {
	return &PatternStage{}
}

func (s *PatternStage) Name() string  { return patternMethodName }
func (s *PatternStage) Priority() int { return patternPriority }

func (s *PatternStage) Classify(ctx context.Context, message string, ents Entities) (*StageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(strings.TrimSpace(message))

	if isGreeting(lower) {
		return decisive(IntentOffTopic, greetingConfidence, patternMethodName), nil
	}

	if s.offTopicVeto(lower, ents) {
		return decisive(IntentOffTopic, offTopicConfidence, patternMethodName), nil
	}

	matches := s.matchGroups(lower)

	// The veto already settled off-topic routing. A keyword that survived
	// it was rescued by a technical signal or a detected topic, so the
	// off-topic group must not out-rank the content intents here.
	delete(matches, IntentOffTopic)

	if len(ents.Topics) > 0 {
		return s.topicOverride(lower, matches), nil
	}

	best := bestMatch(matches)
	if best == nil {
		return nil, nil
	}
	if best.confidence >= patternAcceptFloor {
		return decisive(best.intent, best.confidence, patternMethodName), nil
	}
	return provisional(best.intent, best.confidence, patternMethodName), nil
}

// isGreeting reports whether the entire trimmed message is a greeting
// token, ignoring trailing punctuation.
func isGreeting(lower string) bool {
	trimmed := strings.TrimRight(lower, "!.?, ")
	return greetingTokens[trimmed]
}

// offTopicVeto fires when a generic off-topic keyword appears without any
// technical signal. Detected topics count as technical signals so that
// "python weather module" is not misrouted.
func (s *PatternStage) offTopicVeto(lower string, ents Entities) bool {
	if !containsAnyWord(lower, offTopicKeywords) {
		return false
	}
	if len(ents.Topics) > 0 {
		return false
	}
	return !containsAnyWord(lower, technicalSignals)
}

type patternMatch struct {
	intent     Intent
	confidence float64
	matched    int
}

// matchGroups evaluates every intent's pattern group and scores matching
// intents. Confidence starts at the base per matching group and is
// boosted by action-verb presence and pattern specificity, capped.
func (s *PatternStage) matchGroups(lower string) map[Intent]*patternMatch {
	matches := make(map[Intent]*patternMatch)

	hasVerb := containsAnyWord(lower, actionVerbs)

	for in, group := range patternGroups {
		matched, longest := scoreGroup(lower, group)
		if matched == 0 {
			continue
		}

		conf := patternBaseConfidence
		if hasVerb {
			conf += actionVerbBoost
		}
		conf += specificity(longest)
		if conf > patternMaxConfidence {
			conf = patternMaxConfidence
		}

		matches[in] = &patternMatch{intent: in, confidence: conf, matched: matched}
	}

	return matches
}

func scoreGroup(lower string, group []*regexp.Regexp) (matched int, longest int) {
	for _, re := range group {
		if re.MatchString(lower) {
			matched++
			if l := len(re.String()); l > longest {
				longest = l
			}
		}
	}
	return matched, longest
}

// specificity rewards longer (more specific) patterns, up to the boost cap.
func specificity(patternLen int) float64 {
	boost := float64(patternLen) / specificityScale * specificityBoost
	if boost > specificityBoost {
		return specificityBoost
	}
	return boost
}

func bestMatch(matches map[Intent]*patternMatch) *patternMatch {
	ranked := make([]*patternMatch, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, m)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].confidence != ranked[j].confidence {
			return ranked[i].confidence > ranked[j].confidence
		}
		if ranked[i].matched != ranked[j].matched {
			return ranked[i].matched > ranked[j].matched
		}
		return ranked[i].intent < ranked[j].intent
	})
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}

// topicOverridePriority is the fixed product ordering: a mentioned
// technology biases toward "show me content" unless an explicit different
// verb pattern also matched.
var topicOverridePriority = []Intent{
	IntentNavigateCourse,
	IntentCreateCourse,
	IntentCreateQuiz,
	IntentNavigateQuiz,
	IntentExplainConcept,
}

// topicOverride re-derives the intent from which pattern groups matched
// when at least one topic was detected. It wins even over a stronger
// off-topic match; the veto already filtered genuinely off-topic content.
// The fallback chain ends at NAVIGATE_COURSE whether or not a learning
// keyword is present; a bare technology mention means "show me content".
func (s *PatternStage) topicOverride(lower string, matches map[Intent]*patternMatch) *StageResult {
	for _, in := range topicOverridePriority {
		if m, ok := matches[in]; ok {
			conf := m.confidence
			if conf < overrideConfidence {
				conf = overrideConfidence
			}
			return decisive(in, conf, patternMethodName)
		}
	}

	conf := overrideConfidence
	if learningKeywords.MatchString(lower) {
		conf = patternMaxConfidence
	}
	return decisive(IntentNavigateCourse, conf, patternMethodName)
}

func containsAnyWord(lower string, words []string) bool {
	for _, w := range words {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

func containsWord(lower, word string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
			return true
		}
		idx = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordChar(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || !isWordChar(s[i])
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
