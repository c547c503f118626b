package retrieval

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Store Tests
// =============================================================================

// fakeRepo is an in-memory Repository that counts List calls.
type fakeRepo struct {
	mu        sync.Mutex
	records   []*Record
	listCalls atomic.Int64
	listErr   error
}

func (r *fakeRepo) List(context.Context) ([]*Record, error) {
	r.listCalls.Add(1)
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *fakeRepo) Upsert(_ context.Context, records []*Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

// axisEmbedder assigns each distinct text a unit vector on its own axis
// unless a direction was registered explicitly.
type axisEmbedder struct {
	mu     sync.Mutex
	dim    int
	vecs   map[string][]float32
	next   int
	failOn string
}

func newAxisEmbedder(dim int) *axisEmbedder {
	return &axisEmbedder{dim: dim, vecs: make(map[string][]float32)}
}

func (e *axisEmbedder) set(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vecs[text] = vec
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if text == e.failOn {
		return nil, fmt.Errorf("embedding service down")
	}
	if vec, ok := e.vecs[text]; ok {
		return vec, nil
	}
	vec := make([]float32, e.dim)
	vec[e.next%e.dim] = 1
	e.next++
	e.vecs[text] = vec
	return vec, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func axisVec(dim, axis int) []float32 {
	vec := make([]float32, dim)
	vec[axis] = 1
	return vec
}

func newTestStore(t *testing.T, repo Repository, embedder Embedder) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{Dimension: 4}, repo, embedder, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestStore_InitializeLoadsRecords(t *testing.T) {
	repo := &fakeRepo{records: []*Record{
		{ID: "a", Content: "python basics", Vector: axisVec(4, 0), Metadata: Metadata{Kind: KindCourse}},
		{ID: "b", Content: "react hooks", Vector: axisVec(4, 1), Metadata: Metadata{Kind: KindCourse}},
	}}
	store := newTestStore(t, repo, newAxisEmbedder(4))

	require.NoError(t, store.Initialize(context.Background()))
	assert.Equal(t, 2, store.Len())
}

func TestStore_InitializeCoalescesConcurrentCallers(t *testing.T) {
	repo := &fakeRepo{records: []*Record{
		{ID: "a", Content: "x", Vector: axisVec(4, 0)},
	}}
	store := newTestStore(t, repo, newAxisEmbedder(4))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), repo.listCalls.Load(), "concurrent initializers should share one load")
}

func TestStore_InitializeRetriesAfterFailedLoad(t *testing.T) {
	repo := &fakeRepo{
		records: []*Record{{ID: "a", Content: "x", Vector: axisVec(4, 0)}},
		listErr: fmt.Errorf("database locked"),
	}
	store := newTestStore(t, repo, newAxisEmbedder(4))

	require.Error(t, store.Initialize(context.Background()))
	assert.Zero(t, store.Len())

	repo.listErr = nil
	require.NoError(t, store.Initialize(context.Background()))
	assert.Equal(t, 1, store.Len())

	// A successful load latches; further calls do not rescan.
	require.NoError(t, store.Initialize(context.Background()))
	assert.Equal(t, int64(2), repo.listCalls.Load())
}

func TestStore_InitializeSkipsWrongDimension(t *testing.T) {
	repo := &fakeRepo{records: []*Record{
		{ID: "good", Vector: axisVec(4, 0)},
		{ID: "bad", Vector: []float32{1, 2}},
	}}
	store := newTestStore(t, repo, newAxisEmbedder(4))

	require.NoError(t, store.Initialize(context.Background()))
	assert.Equal(t, 1, store.Len())
	_, ok := store.Get("bad")
	assert.False(t, ok)
}

func TestStore_SearchRanksBySimilarity(t *testing.T) {
	embedder := newAxisEmbedder(4)
	embedder.set("python", []float32{1, 0, 0, 0})

	repo := &fakeRepo{records: []*Record{
		{ID: "exact", Content: "python course", Vector: []float32{1, 0, 0, 0}, Metadata: Metadata{Kind: KindCourse}},
		{ID: "close", Content: "data science", Vector: []float32{0.9, 0.1, 0, 0}, Metadata: Metadata{Kind: KindCourse}},
		{ID: "far", Content: "cooking", Vector: []float32{0, 0, 0, 1}, Metadata: Metadata{Kind: KindCourse}},
	}}
	store := newTestStore(t, repo, embedder)
	require.NoError(t, store.Initialize(context.Background()))

	results := store.Search(context.Background(), "python", SearchOptions{TopK: 2, Threshold: 0.5})

	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Record.ID)
	assert.Equal(t, "close", results[1].Record.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestStore_SearchFiltersByKind(t *testing.T) {
	embedder := newAxisEmbedder(4)
	embedder.set("sql", []float32{1, 0, 0, 0})

	repo := &fakeRepo{records: []*Record{
		{ID: "course", Vector: []float32{1, 0, 0, 0}, Metadata: Metadata{Kind: KindCourse}},
		{ID: "quiz", Vector: []float32{0.99, 0.01, 0, 0}, Metadata: Metadata{Kind: KindQuiz}},
	}}
	store := newTestStore(t, repo, embedder)
	require.NoError(t, store.Initialize(context.Background()))

	results := store.Search(context.Background(), "sql", SearchOptions{Kinds: []Kind{KindQuiz}})

	require.Len(t, results, 1)
	assert.Equal(t, "quiz", results[0].Record.ID)
}

func TestStore_SearchEmbedFailureReturnsEmpty(t *testing.T) {
	embedder := newAxisEmbedder(4)
	embedder.failOn = "down"

	repo := &fakeRepo{records: []*Record{
		{ID: "a", Vector: axisVec(4, 0)},
	}}
	store := newTestStore(t, repo, embedder)
	require.NoError(t, store.Initialize(context.Background()))

	results := store.Search(context.Background(), "down", SearchOptions{})
	assert.Empty(t, results, "embedding failure should degrade to no results")
}

func TestStore_UpsertRejectsWrongDimension(t *testing.T) {
	store := newTestStore(t, &fakeRepo{}, newAxisEmbedder(4))
	require.NoError(t, store.Initialize(context.Background()))

	err := store.Upsert([]*Record{{ID: "bad", Vector: []float32{1, 2, 3}}})
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}

func TestStore_UpsertReplacesByID(t *testing.T) {
	store := newTestStore(t, &fakeRepo{}, newAxisEmbedder(4))
	require.NoError(t, store.Initialize(context.Background()))

	require.NoError(t, store.Upsert([]*Record{{ID: "a", Content: "v1", Vector: axisVec(4, 0)}}))
	require.NoError(t, store.Upsert([]*Record{{ID: "a", Content: "v2", Vector: axisVec(4, 1)}}))

	assert.Equal(t, 1, store.Len())
	rec, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, "v2", rec.Content)
}

func TestContentID_Deterministic(t *testing.T) {
	a := ContentID(KindCourse, "42")
	b := ContentID(KindCourse, "42")
	c := ContentID(KindQuiz, "42")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

// =============================================================================
// Backfill Tests
// =============================================================================

// sliceSource serves a fixed candidate list.
type sliceSource struct {
	records []*Record
}

func (s *sliceSource) MissingEmbeddings(_ context.Context, existing map[string]bool) ([]*Record, error) {
	var out []*Record
	for _, rec := range s.records {
		if !existing[rec.ID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestBackfiller_BatchesAndPersists(t *testing.T) {
	repo := &fakeRepo{}
	store := newTestStore(t, repo, newAxisEmbedder(4))

	source := &sliceSource{}
	for i := 0; i < 7; i++ {
		source.records = append(source.records, &Record{
			ID:      fmt.Sprintf("rec-%d", i),
			Content: fmt.Sprintf("content %d", i),
		})
	}

	backfiller := NewBackfiller(store, source, 3, nil)
	stats, err := backfiller.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Scanned)
	assert.Equal(t, 7, stats.Embedded)
	assert.Equal(t, 7, stats.Upserted)
	assert.Equal(t, 3, stats.Batches, "7 items in batches of 3")
	assert.Equal(t, 7, store.Len())
}

func TestBackfiller_IdempotentAcrossRuns(t *testing.T) {
	repo := &fakeRepo{}
	store := newTestStore(t, repo, newAxisEmbedder(4))

	source := &sliceSource{records: []*Record{
		{ID: "a", Content: "alpha"},
		{ID: "b", Content: "beta"},
	}}

	backfiller := NewBackfiller(store, source, 50, nil)

	first, err := backfiller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Embedded)

	second, err := backfiller.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Embedded, "already-embedded content should not re-embed")
	assert.Equal(t, 2, store.Len())
}

func TestBackfiller_SkipsEmptyContent(t *testing.T) {
	store := newTestStore(t, &fakeRepo{}, newAxisEmbedder(4))

	source := &sliceSource{records: []*Record{
		{ID: "empty", Content: ""},
		{ID: "ok", Content: "something"},
	}}

	backfiller := NewBackfiller(store, source, 50, nil)
	stats, err := backfiller.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Embedded)
}
