package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/compare"
	"github.com/sqlgym/sqlgym/pkg/generator"
	"github.com/sqlgym/sqlgym/pkg/observability"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
)

// Generator abstracts the question pipeline so tests can substitute a
// fake. The real implementation is *generator.Generator.
type Generator interface {
	Generate(ctx context.Context, params generator.Params) (*generator.Result, error)
}

// Config holds session lifecycle settings.
type Config struct {
	// MaxIdleAge is how long a session may sit without activity before
	// the reaper destroys it (default: 2h).
	MaxIdleAge time.Duration

	// ReapInterval is how often the reaper sweeps (default: 5m).
	ReapInterval time.Duration

	// Logger receives session lifecycle events (default: slog.Default()).
	Logger *slog.Logger

	// Now returns the current time. Tests inject a fake clock;
	// the default is time.Now.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.MaxIdleAge == 0 {
		c.MaxIdleAge = 2 * time.Hour
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = 5 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Manager owns all live sessions, keyed by identifier.
type Manager struct {
	generator Generator
	sandbox   sandbox.Sandbox
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(gen Generator, sb sandbox.Sandbox, cfg Config) *Manager {
	cfg.defaults()
	return &Manager{
		generator: gen,
		sandbox:   sb,
		cfg:       cfg,
		logger:    cfg.Logger,
		now:       cfg.Now,
		sessions:  make(map[string]*Session),
	}
}

// Generate runs the question pipeline and registers the resulting
// session. On any generator failure no session is created and the
// error propagates unchanged; the generator has already cleaned up its
// namespace by then.
func (m *Manager) Generate(ctx context.Context, params generator.Params) (*Session, error) {
	res, err := m.generator.Generate(ctx, params)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:         api.NewSessionID(),
		Namespace:  res.Namespace,
		Question:   res.Question,
		Expected:   res.Expected,
		CreatedAt:  now,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	observability.SessionsActive.Inc()
	m.logger.Info("session created",
		"session_id", s.ID,
		"namespace", s.Namespace,
		"difficulty", s.Question.Difficulty)

	return s, nil
}

// Check executes the candidate SQL in the session's namespace and
// grades it against the stored expected result. SQL errors in the
// candidate come back inside the outcome, never as a Go error. Check
// holds the session's critical section for the duration of the
// execution so a concurrent delete cannot drop the namespace
// mid-statement.
func (m *Manager) Check(ctx context.Context, id, candidateSQL string) (*api.CheckOutcome, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil, api.NewSessionNotFoundError(id)
	}

	candidate, err := m.sandbox.Execute(ctx, s.Namespace, candidateSQL, sandbox.ExecOptions{})
	if err != nil {
		return nil, err
	}
	observability.SandboxExecutionDuration.Observe(candidate.DurationMS / 1000)

	outcome := compare.Compare(candidate, s.Expected)
	s.touchLocked(m.now())

	verdict := "incorrect"
	if outcome.Correct {
		verdict = "correct"
	} else if outcome.Error != "" {
		verdict = "error"
	}
	observability.ChecksTotal.WithLabelValues(verdict).Inc()

	return &outcome, nil
}

// RevealHint uncovers the next hint, capped at the question's hint
// count. Calling it past the cap is a no-op at the ceiling, not an
// error. Returns the new revealed count and the revealed hints.
func (m *Manager) RevealHint(_ context.Context, id string) (int, []string, error) {
	s, err := m.lookup(id)
	if err != nil {
		return 0, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return 0, nil, api.NewSessionNotFoundError(id)
	}

	if s.hintsRevealed < len(s.Question.Hints) {
		s.hintsRevealed++
	}
	s.touchLocked(m.now())

	return s.hintsRevealed, s.Question.Hints[:s.hintsRevealed], nil
}

// Delete destroys the session's namespace and removes it. Idempotent:
// deleting an unknown or already-deleted session is a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil
	}

	if err := m.sandbox.DestroyNamespace(ctx, s.Namespace); err != nil {
		return fmt.Errorf("destroying namespace %s: %w", s.Namespace, err)
	}
	s.terminated = true

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	observability.SessionsActive.Dec()
	m.logger.Info("session deleted", "session_id", id, "namespace", s.Namespace)

	return nil
}

// Get returns the live session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	return m.lookup(id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, api.NewSessionNotFoundError(id)
	}
	return s, nil
}
