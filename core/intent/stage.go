package intent

import "context"

// Stage is one link in the classification cascade. Stages are consulted
// in priority order (lower first) until one produces a decisive result.
type Stage interface {
	Classify(ctx context.Context, message string, ents Entities) (*StageResult, error)
	Name() string
	Priority() int
}

// StageResult is a single stage's verdict. A non-decisive result lets the
// cascade escalate to the next stage.
type StageResult struct {
	Intent     Intent
	Confidence float64
	Decisive   bool
	Method     string

	// Entities carries stage-discovered entities (the LLM stage returns
	// them as part of its structured output). Nil for stages that only
	// decide intent.
	Entities *Entities
}

func decisive(in Intent, confidence float64, method string) *StageResult {
	return &StageResult{
		Intent:     in,
		Confidence: confidence,
		Decisive:   true,
		Method:     method,
	}
}

func provisional(in Intent, confidence float64, method string) *StageResult {
	return &StageResult{
		Intent:     in,
		Confidence: confidence,
		Method:     method,
	}
}
