package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single message in a conversation session.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Summary   bool      `json:"summary,omitempty"`
}

// Config controls session retention and compression.
type Config struct {
	MaxMessagesPerSession int
	CompressionThreshold  int
	SessionTimeout        time.Duration
	SweepInterval         time.Duration
}

// DefaultConfig returns the standard memory settings.
func DefaultConfig() Config {
	return Config{
		MaxMessagesPerSession: 50,
		CompressionThreshold:  30,
		SessionTimeout:        24 * time.Hour,
		SweepInterval:         10 * time.Minute,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxMessagesPerSession <= 0 {
		c.MaxMessagesPerSession = d.MaxMessagesPerSession
	}
	if c.CompressionThreshold <= 0 {
		c.CompressionThreshold = d.CompressionThreshold
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
}

type session struct {
	turns      []Turn
	lastActive time.Time
}

// Manager stores per-session conversation history in memory, bounding
// each session's size and compressing old turns into summaries.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	config   Config
	logger   *slog.Logger

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// NewManager creates a conversation memory manager and starts its
// session-expiry sweeper.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		sessions:  make(map[string]*session),
		config:    cfg,
		logger:    logger,
		stopSweep: make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// AddTurn appends a turn to the session, assigning an id and timestamp
// if missing. When the session grows past the compression threshold,
// older turns collapse into a single summary turn.
func (m *Manager) AddTurn(sessionID string, turn Turn) {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = &session{}
		m.sessions[sessionID] = sess
	}
	sess.lastActive = time.Now()
	sess.turns = append(sess.turns, turn)

	if len(sess.turns) > m.config.CompressionThreshold {
		sess.turns = compressTurns(sess.turns, m.config.CompressionThreshold)
		m.logger.Debug("compressed session history",
			"session", sessionID,
			"turns", len(sess.turns))
	}

	if len(sess.turns) > m.config.MaxMessagesPerSession {
		sess.turns = sess.turns[len(sess.turns)-m.config.MaxMessagesPerSession:]
	}
}

// GetMessages returns up to limit of the most recent turns for a
// session, oldest first. A limit of zero or less returns all turns.
func (m *Manager) GetMessages(sessionID string, limit int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}

	turns := sess.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// ClearSession removes all history for a session.
func (m *Manager) ClearSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// SessionCount returns the number of active sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepExpired()
		case <-m.stopSweep:
			return
		}
	}
}

func (m *Manager) sweepExpired() {
	cutoff := time.Now().Add(-m.config.SessionTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Close stops the background sweeper.
func (m *Manager) Close() {
	m.sweepOnce.Do(func() {
		close(m.stopSweep)
	})
}
