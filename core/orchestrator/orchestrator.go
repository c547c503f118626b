package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brightpath/assistant/core/answer"
	"github.com/brightpath/assistant/core/cache"
	"github.com/brightpath/assistant/core/catalog"
	"github.com/brightpath/assistant/core/intent"
	"github.com/brightpath/assistant/core/memory"
	"github.com/brightpath/assistant/core/providers"
	"github.com/brightpath/assistant/core/retrieval"
)

// Config controls orchestrator behavior.
type Config struct {
	CacheTTL            time.Duration
	MaxHistoryTurns     int
	TopK                int
	SimilarityThreshold float64
	MaxAnswerTokens     int
	Temperature         float64
	CompletionTimeout   time.Duration
}

// DefaultConfig returns the standard orchestrator settings.
func DefaultConfig() Config {
	return Config{
		CacheTTL:            time.Hour,
		MaxHistoryTurns:     6,
		TopK:                4,
		SimilarityThreshold: 0.35,
		MaxAnswerTokens:     1024,
		Temperature:         0.7,
		CompletionTimeout:   30 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.MaxHistoryTurns <= 0 {
		c.MaxHistoryTurns = d.MaxHistoryTurns
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.MaxAnswerTokens <= 0 {
		c.MaxAnswerTokens = d.MaxAnswerTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = d.CompletionTimeout
	}
}

// Orchestrator routes user messages through classification, retrieval,
// memory, and generation, and assembles the final response.
type Orchestrator struct {
	classifier   *intent.Classifier
	store        *retrieval.Store
	cache        *cache.ResponseCache
	memory       *memory.Manager
	completer    providers.CompletionService
	catalog      catalog.Repository
	entitlements catalog.Entitlements
	config       Config
	logger       *slog.Logger

	// pendingWrites tracks fire-and-continue assistant-turn writes so
	// tests and shutdown can wait for them.
	pendingWrites sync.WaitGroup
}

// New creates an orchestrator. catalog and entitlements may be nil, in
// which case navigation falls back to generic browse actions and
// creation is treated as unauthorized.
func New(
	classifier *intent.Classifier,
	store *retrieval.Store,
	respCache *cache.ResponseCache,
	mem *memory.Manager,
	completer providers.CompletionService,
	cat catalog.Repository,
	ent catalog.Entitlements,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		classifier:   classifier,
		store:        store,
		cache:        respCache,
		memory:       mem,
		completer:    completer,
		catalog:      cat,
		entitlements: ent,
		config:       cfg,
		logger:       logger,
	}
}

// ProcessMessage handles one user message end to end. It never returns
// an error: every failure path degrades to a valid response.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userID, sessionID, message string, user *intent.UserContext) (resp *answer.Response) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("recovered from panic in message processing", "panic", r)
			resp = apologyResponse()
		}
	}()

	key := cache.GenerateKey(message, userID, "")
	if cached, ok := o.cache.Get(key, userID); ok {
		return cached
	}

	result := o.classifier.Classify(ctx, message, user)
	o.logger.Debug("classified message",
		"intent", result.Intent,
		"confidence", result.Confidence,
		"method", result.Method)

	resp = o.dispatch(ctx, userID, sessionID, message, result, user)

	o.recordTurns(sessionKey(userID, sessionID), message, resp.Content)

	// A degraded apology is transient; caching it would pin the outage.
	if resp.Content != apologyMessage {
		o.cache.Set(key, userID, resp, o.config.CacheTTL)
	}

	resp.Intent = result.Intent
	return resp
}

// sessionKey composes the memory key so each user's sessions stay
// disjoint even when session ids collide.
func sessionKey(userID, session string) string {
	if userID == "" {
		userID = "anon"
	}
	return userID + ":" + session
}

func (o *Orchestrator) dispatch(ctx context.Context, userID, sessionID, message string, result intent.Result, user *intent.UserContext) *answer.Response {
	switch result.Intent {
	case intent.IntentOffTopic:
		return offTopicResponse()
	case intent.IntentNavigateCourse:
		return o.handleNavigateCourses(ctx, userID, result)
	case intent.IntentNavigateQuiz:
		return o.handleNavigateQuizzes(ctx, userID, result)
	case intent.IntentCreateCourse:
		return o.handleCreate(ctx, userID, catalog.ResourceCourse, result, user)
	case intent.IntentCreateQuiz:
		return o.handleCreate(ctx, userID, catalog.ResourceQuiz, result, user)
	default:
		return o.handleOpenEnded(ctx, userID, sessionID, message, result)
	}
}

// recordTurns appends the user turn synchronously and the assistant turn
// in the background. The caller does not block on the assistant write.
func (o *Orchestrator) recordTurns(session string, userMessage, assistantMessage string) {
	o.memory.AddTurn(session, memory.Turn{Role: memory.RoleUser, Content: userMessage})

	o.pendingWrites.Add(1)
	go func() {
		defer o.pendingWrites.Done()
		o.memory.AddTurn(session, memory.Turn{Role: memory.RoleAssistant, Content: assistantMessage})
	}()
}

// Flush waits for any in-flight assistant-turn writes to land.
func (o *Orchestrator) Flush() {
	o.pendingWrites.Wait()
}
