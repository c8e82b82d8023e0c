package session

import (
	"context"
	"time"

	"github.com/sqlgym/sqlgym/pkg/observability"
)

// Run sweeps idle sessions on a ticker until ctx is cancelled. Expired
// sessions go through the same Delete path as an explicit teardown, so
// the reaper needs no cleanup logic of its own.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	m.logger.Info("session reaper started",
		"interval", m.cfg.ReapInterval, "max_idle_age", m.cfg.MaxIdleAge)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session reaper stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep deletes every session idle longer than MaxIdleAge and returns
// how many it removed. Delete already tolerates races (another deleter
// or an absent namespace count as success), so sweep failures on one
// session don't stop the rest.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.cfg.MaxIdleAge)

	// Snapshot first: reading LastActive takes the session lock, and a
	// concurrent Delete takes the manager lock while holding a session
	// lock, so the two locks must never be held together here.
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()

	var expired []string
	for _, s := range live {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s.ID)
		}
	}

	reaped := 0
	for _, id := range expired {
		if err := m.Delete(ctx, id); err != nil {
			m.logger.Error("reaping session", "session_id", id, "error", err)
			continue
		}
		observability.SessionsReapedTotal.Inc()
		reaped++
	}

	if reaped > 0 {
		m.logger.Info("reaped idle sessions", "count", reaped)
	}
	return reaped
}
