package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	llmPriority   = 30
	llmMethodName = "llm"

	defaultLLMTimeout  = 8 * time.Second
	defaultLLMCacheTTL = 5 * time.Minute
	llmCacheSize       = 512
)

// StructuredCompleter is the completion-service contract the LLM stage
// needs: a single structured-output call returning a decoded object.
type StructuredCompleter interface {
	CompleteStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error)
}

// LLMStage is the fallback of last resort. It asks the completion
// service for a structured {intent, confidence, entities} object and
// caches results briefly so repeated escalations of the same message do
// not repeat the call.
type LLMStage struct {
	completer StructuredCompleter
	timeout   time.Duration
	cache     *expirable.LRU[string, *StageResult]
}

// LLMStageConfig configures the LLM fallback stage.
type LLMStageConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewLLMStage creates the LLM fallback stage.
func NewLLMStage(completer StructuredCompleter, cfg *LLMStageConfig) *LLMStage {
	timeout := defaultLLMTimeout
	cacheTTL := defaultLLMCacheTTL
	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		if cfg.CacheTTL > 0 {
			cacheTTL = cfg.CacheTTL
		}
	}

	return &LLMStage{
		completer: completer,
		timeout:   timeout,
		cache:     expirable.NewLRU[string, *StageResult](llmCacheSize, nil, cacheTTL),
	}
}

func (s *LLMStage) Name() string  { return llmMethodName }
func (s *LLMStage) Priority() int { return llmPriority }

func (s *LLMStage) Classify(ctx context.Context, message string, _ Entities) (*StageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.completer == nil || strings.TrimSpace(message) == "" {
		return nil, nil
	}

	key := strings.ToLower(strings.TrimSpace(message))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.completer.CompleteStructured(llmCtx, classificationPrompt(message), classificationSchema())
	if err != nil {
		return nil, fmt.Errorf("structured classification: %w", err)
	}

	result := parseClassification(obj)
	if result == nil {
		return nil, fmt.Errorf("structured classification: unusable response")
	}

	s.cache.Add(key, result)
	return result, nil
}

// CacheLen returns the number of cached classifications.
func (s *LLMStage) CacheLen() int {
	return s.cache.Len()
}

func classificationPrompt(message string) string {
	var sb strings.Builder
	sb.WriteString("Classify the user's message for an education platform assistant.\n")
	sb.WriteString("Pick exactly one intent:\n")
	sb.WriteString("- navigate_course: wants to find or browse courses\n")
	sb.WriteString("- navigate_quiz: wants to find or take quizzes\n")
	sb.WriteString("- create_quiz: wants a quiz generated\n")
	sb.WriteString("- create_course: wants a course generated\n")
	sb.WriteString("- explain_concept: wants a concept explained\n")
	sb.WriteString("- troubleshoot: has a technical problem or error\n")
	sb.WriteString("- subscription_info: asks about plans, pricing, billing\n")
	sb.WriteString("- general_help: general questions about using the platform\n")
	sb.WriteString("- off_topic: unrelated to learning or the platform\n\n")
	sb.WriteString("Message: ")
	sb.WriteString(message)
	return sb.String()
}

func classificationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type": "string",
				"enum": intentStrings(),
			},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"entities": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"topics":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"quiz_types": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"difficulty": map[string]any{"type": "string", "enum": []string{"easy", "medium", "hard"}},
					"quantity":   map[string]any{"type": "integer"},
				},
			},
		},
		"required": []string{"intent", "confidence"},
	}
}

func intentStrings() []string {
	out := make([]string, 0, len(allIntents))
	for _, in := range allIntents {
		out = append(out, string(in))
	}
	return out
}

func parseClassification(obj map[string]any) *StageResult {
	name, _ := obj["intent"].(string)
	in, ok := ParseIntent(name)
	if !ok {
		return nil
	}

	conf := parseConfidence(obj["confidence"])

	result := decisive(in, conf, llmMethodName)
	if ents := parseEntityObject(obj["entities"]); ents != nil {
		result.Entities = ents
	}
	return result
}

func parseConfidence(v any) float64 {
	conf, ok := v.(float64)
	if !ok {
		return 0.5
	}
	return clampConfidence(conf)
}

func parseEntityObject(v any) *Entities {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	ents := &Entities{
		Topics:    parseStringList(m["topics"]),
		QuizTypes: parseStringList(m["quiz_types"]),
	}
	if d, ok := m["difficulty"].(string); ok {
		switch Difficulty(d) {
		case DifficultyEasy, DifficultyMedium, DifficultyHard:
			ents.Difficulty = Difficulty(d)
		}
	}
	if q, ok := m["quantity"].(float64); ok && q > 0 {
		ents.Quantity = int(q)
	}
	return ents
}

func parseStringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}
