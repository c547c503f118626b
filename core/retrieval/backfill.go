package retrieval

import (
	"context"
	"fmt"
	"log/slog"
)

const defaultBackfillBatchSize = 50

// Source enumerates content that does not yet have an embedding record.
type Source interface {
	MissingEmbeddings(ctx context.Context, existing map[string]bool) ([]*Record, error)
}

// BackfillStats summarizes a single backfill run.
type BackfillStats struct {
	Scanned  int
	Embedded int
	Upserted int
	Batches  int
	Skipped  int
	Failed   int
}

// Backfiller embeds missing content in batches and persists the results.
// It is triggered explicitly by an administrator, never on startup.
type Backfiller struct {
	store     *Store
	source    Source
	batchSize int
	logger    *slog.Logger
}

// NewBackfiller creates a backfiller for the given store and content source.
func NewBackfiller(store *Store, source Source, batchSize int, logger *slog.Logger) *Backfiller {
	if batchSize <= 0 {
		batchSize = defaultBackfillBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{
		store:     store,
		source:    source,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run scans for unembedded content and fills in the gaps. Records whose
// ids already exist in the store are skipped, so repeated runs converge
// without re-embedding.
func (b *Backfiller) Run(ctx context.Context) (*BackfillStats, error) {
	if err := b.store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize store before backfill: %w", err)
	}

	existing := b.store.knownIDs()
	candidates, err := b.source.MissingEmbeddings(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("scan for missing embeddings: %w", err)
	}

	stats := &BackfillStats{Scanned: len(candidates)}

	var pending []*Record
	for _, rec := range candidates {
		if rec.Content == "" || existing[rec.ID] {
			stats.Skipped++
			continue
		}
		pending = append(pending, rec)
	}

	for start := 0; start < len(pending); start += b.batchSize {
		end := start + b.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		stats.Batches++

		if err := b.processBatch(ctx, batch, stats); err != nil {
			b.logger.Warn("backfill batch failed",
				"batch", stats.Batches,
				"size", len(batch),
				"error", err)
			stats.Failed += len(batch)
			continue
		}
	}

	b.logger.Info("backfill complete",
		"scanned", stats.Scanned,
		"embedded", stats.Embedded,
		"upserted", stats.Upserted,
		"batches", stats.Batches,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
	return stats, nil
}

func (b *Backfiller) processBatch(ctx context.Context, batch []*Record, stats *BackfillStats) error {
	texts := make([]string, len(batch))
	for i, rec := range batch {
		texts[i] = rec.Content
	}

	vectors, err := b.store.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed batch returned %d vectors for %d texts", len(vectors), len(batch))
	}

	for i, rec := range batch {
		rec.Vector = vectors[i]
	}
	stats.Embedded += len(batch)

	if err := b.store.Upsert(batch); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	if b.store.repo != nil {
		if err := b.store.repo.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("persist batch: %w", err)
		}
	}
	stats.Upserted += len(batch)
	return nil
}
