package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/brightpath/assistant/core/cache"
	"github.com/brightpath/assistant/core/catalog"
	"github.com/brightpath/assistant/core/config"
	"github.com/brightpath/assistant/core/intent"
	"github.com/brightpath/assistant/core/memory"
	"github.com/brightpath/assistant/core/orchestrator"
	"github.com/brightpath/assistant/core/providers"
	"github.com/brightpath/assistant/core/retrieval"
)

// app bundles the wired components behind the CLI commands.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	embedder     providers.EmbeddingService
	completer    providers.CompletionService
	store        *retrieval.Store
	repo         *retrieval.SQLiteRepository
	classifier   *intent.Classifier
	centroids    *intent.CentroidStage
	orchestrator *orchestrator.Orchestrator
	cache        *cache.ResponseCache
	memory       *memory.Manager
}

// offlineCompleter stands in when no provider credentials are
// configured. Every call fails, so open-ended answers degrade to the
// apology path instead of crashing.
type offlineCompleter struct{}

func (offlineCompleter) Complete(context.Context, string, []providers.Message, providers.CompletionOptions) (*providers.Completion, error) {
	return nil, fmt.Errorf("no completion provider configured")
}

func (offlineCompleter) CompleteStructured(context.Context, string, map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("no completion provider configured")
}

// buildApp wires the full stack from configuration. When mock is true,
// or no API key is available, embeddings are produced locally and
// completions are disabled.
func buildApp(mock bool, centroidsPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	a := &app{cfg: cfg, logger: logger}

	if err := a.buildProviders(mock); err != nil {
		return nil, err
	}
	if err := a.buildRetrieval(); err != nil {
		return nil, err
	}
	a.buildClassifier(centroidsPath)
	a.buildOrchestrator()

	return a, nil
}

func (a *app) buildProviders(mock bool) error {
	cfg := a.cfg

	switch {
	case !mock && cfg.Provider == string(providers.ProviderTypeAnthropic) && cfg.Anthropic.APIKey != "":
		provider, err := providers.NewAnthropicProvider(cfg.Anthropic)
		if err != nil {
			return fmt.Errorf("configure anthropic: %w", err)
		}
		a.completer = provider
		// Anthropic has no embeddings endpoint; use OpenAI or mock.
		if cfg.OpenAI.APIKey != "" {
			embedder, err := providers.NewOpenAIProvider(cfg.OpenAI)
			if err != nil {
				return fmt.Errorf("configure openai embeddings: %w", err)
			}
			a.embedder = embedder
		} else {
			a.embedder = providers.NewMockEmbedder(cfg.Retrieval.Dimension)
		}

	case !mock && cfg.OpenAI.APIKey != "":
		provider, err := providers.NewOpenAIProvider(cfg.OpenAI)
		if err != nil {
			return fmt.Errorf("configure openai: %w", err)
		}
		a.completer = provider
		a.embedder = provider

	default:
		a.logger.Warn("no provider credentials; running with local mock embeddings")
		a.completer = offlineCompleter{}
		a.embedder = providers.NewMockEmbedder(cfg.Retrieval.Dimension)
	}
	return nil
}

func (a *app) buildRetrieval() error {
	repo, err := retrieval.NewSQLiteRepository(a.cfg.Retrieval.DBPath)
	if err != nil {
		return err
	}
	a.repo = repo

	store, err := retrieval.NewStore(retrieval.StoreConfig{
		Dimension: a.cfg.Retrieval.Dimension,
	}, repo, a.embedder, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *app) buildClassifier(centroidsPath string) {
	stages := []intent.Stage{intent.NewPatternStage()}

	centroidStage := intent.NewCentroidStage(a.embedder, 0)
	if centroidsPath != "" {
		centroids, err := intent.LoadCentroids(centroidsPath)
		if err != nil {
			a.logger.Warn("could not load centroids", "path", centroidsPath, "error", err)
		} else {
			centroidStage.SetCentroids(centroids)
		}
	}
	a.centroids = centroidStage
	if centroidStage.CentroidCount() > 0 {
		stages = append(stages, centroidStage)
	}

	if _, offline := a.completer.(offlineCompleter); !offline {
		stages = append(stages, intent.NewLLMStage(a.completer, nil))
	}

	a.classifier = intent.NewClassifier(a.logger, stages...)
}

func (a *app) buildOrchestrator() {
	a.cache = cache.New(cache.Config{
		MaxEntries:       a.cfg.Cache.MaxEntries,
		DefaultTTL:       a.cfg.Cache.TTL,
		SweepInterval:    a.cfg.Cache.SweepInterval,
		MinContentLength: a.cfg.Cache.MinContentLength,
	}, a.logger)

	a.memory = memory.NewManager(memory.Config{
		MaxMessagesPerSession: a.cfg.Memory.MaxMessagesPerSession,
		CompressionThreshold:  a.cfg.Memory.CompressionThreshold,
		SessionTimeout:        a.cfg.Memory.SessionTimeout,
	}, a.logger)

	cat := catalog.NewMemoryRepository()
	ent := catalog.NewStaticEntitlements()

	a.orchestrator = orchestrator.New(
		a.classifier,
		a.store,
		a.cache,
		a.memory,
		a.completer,
		cat,
		ent,
		orchestrator.Config{
			CacheTTL:            a.cfg.Cache.TTL,
			MaxHistoryTurns:     a.cfg.Orchestrator.MaxHistoryTurns,
			TopK:                a.cfg.Retrieval.TopK,
			SimilarityThreshold: a.cfg.Retrieval.Threshold,
			MaxAnswerTokens:     a.cfg.Orchestrator.MaxAnswerTokens,
			Temperature:         a.cfg.Orchestrator.Temperature,
			CompletionTimeout:   a.cfg.Orchestrator.CompletionTimeout,
		},
		a.logger,
	)
}

func (a *app) close() {
	if a.orchestrator != nil {
		a.orchestrator.Flush()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.memory != nil {
		a.memory.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.repo != nil {
		a.repo.Close()
	}
}
