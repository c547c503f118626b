package intent

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	fallbackConfidence = 0.50
	fallbackMethod     = "default"
)

// Classifier runs the classification cascade: pattern rules, then the
// statistical centroid stage, then the LLM fallback. Classify never
// returns an error; every failure degrades to the next stage and the
// terminal fallback is a low-confidence GENERAL_HELP.
type Classifier struct {
	mu     sync.RWMutex
	stages []Stage
	logger *slog.Logger

	classified atomic.Uint64
	fallbacks  atomic.Uint64

	methodMu sync.Mutex
	byMethod map[string]uint64
}

// Stats reports how many messages the cascade has classified, how many
// fell through to the terminal fallback, and the decisive-method
// breakdown.
type Stats struct {
	Classified uint64
	Fallbacks  uint64
	ByMethod   map[string]uint64
}

// NewClassifier creates a classifier from the given stages, sorted by
// priority (lower runs first).
func NewClassifier(logger *slog.Logger, stages ...Stage) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Classifier{logger: logger, byMethod: make(map[string]uint64)}
	for _, s := range stages {
		if s != nil {
			c.stages = append(c.stages, s)
		}
	}
	sort.SliceStable(c.stages, func(i, j int) bool {
		return c.stages[i].Priority() < c.stages[j].Priority()
	})
	return c
}

// StageCount returns the number of configured stages.
func (c *Classifier) StageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stages)
}

// Classify labels a message with an intent and extracted entities. The
// user context is optional and only informs logging; stages operate on
// the message alone.
func (c *Classifier) Classify(ctx context.Context, message string, user *UserContext) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classifier panic recovered", "panic", r)
			result = fallbackResult(Entities{})
		}
		c.record(result.Method)
	}()

	ents := ExtractEntities(message)

	if strings.TrimSpace(message) == "" {
		return fallbackResult(ents)
	}

	c.mu.RLock()
	stages := make([]Stage, len(c.stages))
	copy(stages, c.stages)
	c.mu.RUnlock()

	for _, stage := range stages {
		res, err := stage.Classify(ctx, message, ents)
		if err != nil {
			c.logger.Debug("classification stage failed, escalating",
				"stage", stage.Name(), "error", err)
			continue
		}
		if res == nil {
			continue
		}

		if res.Entities != nil {
			ents.Merge(res.Entities)
		}

		if res.Decisive {
			return Result{
				Intent:     res.Intent,
				Confidence: res.Confidence,
				Entities:   ents,
				Method:     res.Method,
			}
		}
	}

	if user != nil {
		c.logger.Debug("classification fell through every stage",
			"user", user.UserID)
	}
	return fallbackResult(ents)
}

// Stats returns a snapshot of the cascade counters.
func (c *Classifier) Stats() Stats {
	c.methodMu.Lock()
	byMethod := make(map[string]uint64, len(c.byMethod))
	for m, n := range c.byMethod {
		byMethod[m] = n
	}
	c.methodMu.Unlock()

	return Stats{
		Classified: c.classified.Load(),
		Fallbacks:  c.fallbacks.Load(),
		ByMethod:   byMethod,
	}
}

func (c *Classifier) record(method string) {
	c.classified.Add(1)
	if method == fallbackMethod {
		c.fallbacks.Add(1)
	}
	c.methodMu.Lock()
	c.byMethod[method]++
	c.methodMu.Unlock()
}

func fallbackResult(ents Entities) Result {
	return Result{
		Intent:     IntentGeneralHelp,
		Confidence: fallbackConfidence,
		Entities:   ents,
		Method:     fallbackMethod,
	}
}
