package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/assistant/core/answer"
)

// =============================================================================
// ResponseCache Tests
// =============================================================================

func newTestCache(t *testing.T, cfg Config) *ResponseCache {
	t.Helper()
	c := New(cfg, nil)
	t.Cleanup(c.Close)
	return c
}

func resp(content string) *answer.Response {
	return &answer.Response{Content: content}
}

func TestResponseCache_SetAndGet(t *testing.T) {
	c := newTestCache(t, Config{})

	key := GenerateKey("what is a goroutine", "user-1", "")
	c.Set(key, "user-1", resp("A goroutine is a lightweight thread."), time.Minute)

	got, ok := c.Get(key, "user-1")
	require.True(t, ok)
	assert.Equal(t, "A goroutine is a lightweight thread.", got.Content)
	assert.True(t, got.Cached, "cache hits must be marked")
}

func TestResponseCache_UserIsolation(t *testing.T) {
	c := newTestCache(t, Config{})

	key := "shared-key"
	c.Set(key, "userA", resp("answer belonging to user A"), time.Minute)

	_, ok := c.Get(key, "userB")
	assert.False(t, ok, "another user must never see a foreign entry")

	got, ok := c.Get(key, "userA")
	require.True(t, ok)
	assert.Equal(t, "answer belonging to user A", got.Content)
}

func TestResponseCache_AnonymousEntriesAreShared(t *testing.T) {
	c := newTestCache(t, Config{})

	key := "anon-key"
	c.Set(key, "", resp("anyone can read this answer"), time.Minute)

	_, ok := c.Get(key, "userA")
	assert.True(t, ok)
	_, ok = c.Get(key, "")
	assert.True(t, ok)
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t, Config{SweepInterval: time.Hour})

	key := "ttl-key"
	c.Set(key, "user-1", resp("short lived answer content"), time.Second)

	_, ok := c.Get(key, "user-1")
	assert.True(t, ok, "should hit immediately")

	time.Sleep(1100 * time.Millisecond)

	_, ok = c.Get(key, "user-1")
	assert.False(t, ok, "should miss after ttl")
}

func TestResponseCache_MinContentLengthGate(t *testing.T) {
	c := newTestCache(t, Config{MinContentLength: 20})

	c.Set("short", "user-1", resp("too short"), time.Minute)
	_, ok := c.Get("short", "user-1")
	assert.False(t, ok, "degenerate answers should not be cached")

	c.Set("long", "user-1", resp("this answer is comfortably long enough"), time.Minute)
	_, ok = c.Get("long", "user-1")
	assert.True(t, ok)
}

func TestResponseCache_EvictionPrefersColdExpiringEntries(t *testing.T) {
	c := newTestCache(t, Config{MaxEntries: 2})

	c.Set("hot", "u", resp("frequently used cached answer"), time.Hour)
	c.Set("cold", "u", resp("rarely used cached answer!!"), time.Hour)

	// Drive up the hot entry's hit count.
	for i := 0; i < 5; i++ {
		_, ok := c.Get("hot", "u")
		require.True(t, ok)
	}

	// Inserting into the full cache evicts the lowest-scoring entry.
	c.Set("new", "u", resp("the newest cached answer here"), time.Hour)

	_, ok := c.Get("cold", "u")
	assert.False(t, ok, "cold entry should have been evicted")
	_, ok = c.Get("hot", "u")
	assert.True(t, ok)
	_, ok = c.Get("new", "u")
	assert.True(t, ok)
}

func TestResponseCache_StatsCounters(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("k", "u", resp("some cached answer content"), time.Minute)
	c.Get("k", "u")
	c.Get("absent", "u")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestResponseCache_ReturnsCopies(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("k", "u", resp("the original cached answer text"), time.Minute)

	first, ok := c.Get("k", "u")
	require.True(t, ok)
	first.Content = "mutated"

	second, ok := c.Get("k", "u")
	require.True(t, ok)
	assert.Equal(t, "the original cached answer text", second.Content)
}

func TestResponseCache_InvalidateUser(t *testing.T) {
	c := newTestCache(t, Config{})

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), "userA", resp("answer long enough to cache"), time.Minute)
	}
	c.Set("other", "userB", resp("answer long enough to cache"), time.Minute)

	removed := c.InvalidateUser("userA")
	assert.Equal(t, 3, removed)

	_, ok := c.Get("other", "userB")
	assert.True(t, ok)
}

// =============================================================================
// Key Generation Tests
// =============================================================================

func TestGenerateKey_Deterministic(t *testing.T) {
	a := GenerateKey("What is Python?", "user-1", "explain_concept")
	b := GenerateKey("What is Python?", "user-1", "explain_concept")
	assert.Equal(t, a, b)
}

func TestGenerateKey_NormalizationCollisions(t *testing.T) {
	a := GenerateKey("What is Python?", "user-1", "")
	b := GenerateKey("what is python", "user-1", "")
	c := GenerateKey("  WHAT   IS   PYTHON!!  ", "user-1", "")

	assert.Equal(t, a, b, "punctuation and casing should not change the key")
	assert.Equal(t, a, c, "whitespace runs should not change the key")
}

func TestGenerateKey_FillerWordsIgnored(t *testing.T) {
	a := GenerateKey("can you explain recursion please", "u", "")
	b := GenerateKey("explain recursion", "u", "")
	assert.Equal(t, a, b)
}

func TestGenerateKey_VariesByUser(t *testing.T) {
	a := GenerateKey("same question", "userA", "")
	b := GenerateKey("same question", "userB", "")
	assert.NotEqual(t, a, b)
}

func TestGenerateKey_FullUserIDHashed(t *testing.T) {
	// Users sharing a long prefix must still get distinct keys.
	a := GenerateKey("q", "user-00000000000000000000001", "")
	b := GenerateKey("q", "user-00000000000000000000002", "")
	assert.NotEqual(t, a, b)
}

func TestGenerateKey_VariesByIntent(t *testing.T) {
	a := GenerateKey("python", "u", "navigate_course")
	b := GenerateKey("python", "u", "explain_concept")
	c := GenerateKey("python", "u", "")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateKey_AnonymousUser(t *testing.T) {
	a := GenerateKey("q", "", "")
	b := GenerateKey("q", "", "")
	assert.Equal(t, a, b)
}
