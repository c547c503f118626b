package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultDimension = 512
	defaultTopK      = 10

	embedCacheCounters = 1e5
	embedCacheMaxCost  = 1 << 24 // 16MB of query vectors
	embedCacheBuffer   = 64
)

// StoreConfig configures the embedding store.
type StoreConfig struct {
	// Dimension is fixed at store creation; every stored vector must
	// match it.
	Dimension int
}

// Store holds catalog embeddings in memory and serves cosine-similarity
// search over them. The in-memory index is replace-on-upsert per key and
// safe for concurrent reads during writes.
type Store struct {
	repo     Repository
	embedder Embedder
	dim      int
	logger   *slog.Logger

	mu      sync.RWMutex
	records map[string]*Record

	initMu      sync.Mutex
	initialized bool

	// queryCache memoizes query embeddings so repeated phrasings of the
	// same search skip the embedding service.
	queryCache *ristretto.Cache
}

// NewStore creates an embedding store. Initialize must be called before
// Search returns anything.
func NewStore(cfg StoreConfig, repo Repository, embedder Embedder, logger *slog.Logger) (*Store, error) {
	dim := cfg.Dimension
	if dim <= 0 {
		dim = defaultDimension
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: embedCacheCounters,
		MaxCost:     embedCacheMaxCost,
		BufferItems: embedCacheBuffer,
	})
	if err != nil {
		return nil, fmt.Errorf("create query embedding cache: %w", err)
	}

	return &Store{
		repo:       repo,
		embedder:   embedder,
		dim:        dim,
		logger:     logger,
		records:    make(map[string]*Record),
		queryCache: cache,
	}, nil
}

// Dimension returns the store's configured vector dimensionality.
func (s *Store) Dimension() int { return s.dim }

// Initialize loads all persisted vectors into memory. It is idempotent
// and concurrent callers coalesce into a single load: the first caller
// performs it while the rest block on the same outcome. A failed load
// does not latch; the next call retries.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized {
		return nil
	}
	if err := s.load(ctx); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

func (s *Store) load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}

	loaded := make(map[string]*Record, len(records))
	skipped := 0
	for _, rec := range records {
		if len(rec.Vector) != s.dim {
			skipped++
			continue
		}
		loaded[rec.ID] = rec
	}

	s.mu.Lock()
	s.records = loaded
	s.mu.Unlock()

	if skipped > 0 {
		s.logger.Warn("skipped records with wrong dimensionality",
			"skipped", skipped, "dimension", s.dim)
	}
	s.logger.Info("embedding store initialized", "records", len(loaded))
	return nil
}

// SearchOptions narrows a similarity search.
type SearchOptions struct {
	TopK      int
	Threshold float64
	Kinds     []Kind
}

// Search embeds the query and returns records ranked by cosine
// similarity above the threshold, limited to TopK. Failures yield an
// empty result set rather than an error so callers proceed with
// ungrounded generation.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, returning no context",
			"error", err)
		return nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	candidates := s.score(vec, opts.Threshold, opts.Kinds)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	key := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	if cached, ok := s.queryCache.Get(key); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s.queryCache.Set(key, vec, int64(len(vec)*4))
	return vec, nil
}

func (s *Store) score(query []float32, threshold float64, kinds []Kind) []SearchResult {
	kindSet := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, rec := range s.records {
		if len(kindSet) > 0 && !kindSet[rec.Metadata.Kind] {
			continue
		}
		sim := CosineSimilarity(query, rec.Vector)
		if sim >= threshold && sim > 0 {
			results = append(results, SearchResult{Record: rec, Score: sim})
		}
	}
	return results
}

// Upsert replaces records in the in-memory index. Replacement is atomic
// per key. Records with the wrong dimensionality are rejected.
func (s *Store) Upsert(records []*Record) error {
	for _, rec := range records {
		if len(rec.Vector) != s.dim {
			return fmt.Errorf("record %s: vector length %d, store dimension %d",
				rec.ID, len(rec.Vector), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	return nil
}

// Len returns the number of records in the in-memory index.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// knownIDs snapshots the set of indexed record ids.
func (s *Store) knownIDs() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]bool, len(s.records))
	for id := range s.records {
		ids[id] = true
	}
	return ids
}

// Get returns the record for an id, if present.
func (s *Store) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Close releases the query-embedding cache.
func (s *Store) Close() {
	s.queryCache.Close()
}
