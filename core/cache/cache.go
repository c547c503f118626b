package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brightpath/assistant/core/answer"
)

// Entry is a cached response together with its bookkeeping.
type Entry struct {
	Key         string
	Value       *answer.Response
	ExpiresAt   time.Time
	HitCount    int64
	OwnerUserID string
}

// Config controls cache capacity and retention.
type Config struct {
	MaxEntries       int
	DefaultTTL       time.Duration
	SweepInterval    time.Duration
	MinContentLength int
}

// DefaultConfig returns the standard cache settings.
func DefaultConfig() Config {
	return Config{
		MaxEntries:       1000,
		DefaultTTL:       time.Hour,
		SweepInterval:    time.Minute,
		MinContentLength: 20,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxEntries <= 0 {
		c.MaxEntries = d.MaxEntries
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = d.DefaultTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.MinContentLength <= 0 {
		c.MinContentLength = d.MinContentLength
	}
}

// Stats reports cache activity counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// ResponseCache is a TTL cache for assistant responses. Entries are
// owned by the user whose message produced them and are never served
// to another user.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	config  Config
	logger  *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New creates a response cache and starts its expiry sweeper.
func New(cfg Config, logger *slog.Logger) *ResponseCache {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	c := &ResponseCache{
		entries:   make(map[string]*Entry),
		config:    cfg,
		logger:    logger,
		stopSweep: make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get returns the cached response for key if it exists, has not expired,
// and belongs to the requesting user. The returned copy has Cached set.
func (c *ResponseCache) Get(key, userID string) (*answer.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		c.misses.Add(1)
		return nil, false
	}

	// Anonymous entries are shared; owned entries belong to one user.
	owner := userID
	if owner == "" {
		owner = anonOwner
	}
	if entry.OwnerUserID != anonOwner && entry.OwnerUserID != owner {
		c.misses.Add(1)
		return nil, false
	}

	entry.HitCount++
	c.hits.Add(1)

	resp := entry.Value.Clone()
	resp.Cached = true
	return resp, true
}

// Set stores a response under key for the given user. Responses shorter
// than the configured minimum are not worth caching and are dropped.
func (c *ResponseCache) Set(key, userID string, resp *answer.Response, ttl time.Duration) {
	if resp == nil || len(resp.Content) < c.config.MinContentLength {
		return
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	owner := userID
	if owner == "" {
		owner = anonOwner
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxEntries {
		c.evictLowestScoreLocked()
	}

	c.entries[key] = &Entry{
		Key:         key,
		Value:       resp.Clone(),
		ExpiresAt:   time.Now().Add(ttl),
		OwnerUserID: owner,
	}
}

// evictLowestScoreLocked removes the entry with the lowest retention
// score: hit count minus hours remaining until expiry. Frequently hit
// entries survive, and entries close to expiring go first.
func (c *ResponseCache) evictLowestScoreLocked() {
	var victim string
	lowest := 0.0
	first := true
	now := time.Now()

	for key, entry := range c.entries {
		score := float64(entry.HitCount) - entry.ExpiresAt.Sub(now).Seconds()/3600
		if first || score < lowest {
			victim = key
			lowest = score
			first = false
		}
	}

	if victim != "" {
		delete(c.entries, victim)
		c.evictions.Add(1)
	}
}

// Invalidate removes a single entry.
func (c *ResponseCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateUser removes every entry owned by userID.
func (c *ResponseCache) InvalidateUser(userID string) int {
	owner := userID
	if owner == "" {
		owner = anonOwner
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.OwnerUserID == owner {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of cache counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
	}
}

func (c *ResponseCache) sweepLoop() {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-c.stopSweep:
			return
		}
	}
}

func (c *ResponseCache) sweepExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}

// Close stops the background sweeper.
func (c *ResponseCache) Close() {
	c.sweepOnce.Do(func() {
		close(c.stopSweep)
	})
}
