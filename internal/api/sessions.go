package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/assistant"
	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/events"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Session is one conversation with the assistant.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	conv       *assistant.Conversation
	lastActive atomic.Int64
	done       chan struct{}
}

// Conversation returns the conversation of the session.
func (s *Session) Conversation() *assistant.Conversation {
	return s.conv
}

// LastActive returns the time the session last started a query.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load()).UTC()
}

// Done is closed when the session is deleted.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

// SessionManager owns the live sessions and the progress event fan-out.
// It is safe for concurrent use.
type SessionManager struct {
	deps        assistant.Dependencies
	cfg         config.EngineConfig
	emitter     *events.InMemoryEventEmitter
	logger      *slog.Logger
	maxSessions int
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// SessionManagerOption customizes a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithMaxSessions caps the number of live sessions. Zero means no limit.
func WithMaxSessions(n int) SessionManagerOption {
	return func(m *SessionManager) {
		m.maxSessions = n
	}
}

// WithIdleTimeout makes PruneIdle remove sessions that have been idle for d.
// Zero keeps sessions until they are deleted.
func WithIdleTimeout(d time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		m.idleTimeout = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// NewSessionManager creates a manager whose sessions share deps. The
// emitter in deps is replaced by the manager's own fan-out emitter.
func NewSessionManager(deps assistant.Dependencies, cfg config.EngineConfig, opts ...SessionManagerOption) *SessionManager {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	m := &SessionManager{
		deps:     deps,
		cfg:      cfg,
		emitter:  events.NewInMemoryEventEmitter(log),
		logger:   log.With(slog.String("component", "session_manager")),
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
	m.deps.Emitter = m.emitter
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session.
func (m *SessionManager) Create(ctx context.Context) (*Session, error) {
	id := uuid.New()
	conv, err := assistant.NewConversation(m.deps, m.cfg, assistant.WithSessionID(id))
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	now := m.now().UTC()
	s := &Session{ID: id, CreatedAt: now, conv: conv, done: make(chan struct{})}
	s.touch(now)

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, m.maxSessions)
	}
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session created",
		slog.String("session_id", id.String()),
		slog.Int("sessions", count))
	return s, nil
}

// Get returns a live session.
func (m *SessionManager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Query runs query in the session. Queries of one session run one at a time.
func (m *SessionManager) Query(ctx context.Context, id uuid.UUID, query string) (*assistant.ExecutionResult, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.touch(m.now())
	return s.conv.Process(ctx, query)
}

// Delete ends a session and closes its progress streams.
func (m *SessionManager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	close(s.done)
	m.logger.InfoContext(ctx, "session deleted", slog.String("session_id", id.String()))
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Subscribe registers h for the progress events of session id. The
// returned function removes the subscription.
func (m *SessionManager) Subscribe(id uuid.UUID, h events.EventHandler) func() {
	return m.emitter.RegisterHandler(events.HandlerFunc(func(ctx context.Context, event *events.ProgressEvent) error {
		if event.SessionID != id {
			return nil
		}
		return h.HandleEvent(ctx, event)
	}))
}

// PruneIdle deletes the sessions that have been idle longer than the idle
// timeout and returns how many were removed.
func (m *SessionManager) PruneIdle(ctx context.Context) int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.RLock()
	var idle []uuid.UUID
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	pruned := 0
	for _, id := range idle {
		if err := m.Delete(ctx, id); err == nil {
			pruned++
		}
	}
	if pruned > 0 {
		m.logger.InfoContext(ctx, "pruned idle sessions", slog.Int("pruned", pruned))
	}
	return pruned
}

// RunJanitor prunes idle sessions every interval until ctx is done.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.PruneIdle(ctx)
		}
	}
}

// Close deletes every session.
func (m *SessionManager) Close(ctx context.Context) {
	m.mu.RLock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Delete(ctx, id)
	}
}
