// Package session owns the mapping from session identifier to live
// practice state: the question, its sandbox namespace, the precomputed
// expected result, hint progress, and activity timestamps.
//
// The Manager is the sole owner of that state. Every operation on a
// session runs inside that session's critical section, so a delete (or
// a reaper sweep) can never tear a namespace down while a check is
// reading from it. Operations on different sessions never block each
// other. Sessions live only in process memory: durable cross-restart
// session storage is out of scope, and crashed-process namespace
// leftovers are swept by the sandbox-level reaper instead.
package session

import (
	"sync"
	"time"

	"github.com/sqlgym/sqlgym/pkg/api"
)

// Session is one learner's attempt at a question, bound to one sandbox
// namespace for its whole lifetime. The identifying fields are
// immutable after registration; hint progress and activity are guarded
// by the session's own mutex.
type Session struct {
	ID        string
	Namespace string
	Question  *api.Question
	Expected  *api.ExecutionResult
	CreatedAt time.Time

	mu            sync.Mutex
	hintsRevealed int
	lastActive    time.Time
	terminated    bool
}

// HintsRevealed returns how many hints the learner has uncovered.
func (s *Session) HintsRevealed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hintsRevealed
}

// LastActive returns the time of the session's most recent operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Response builds the public view of the session: everything the
// client needs to present the question, without the reference query or
// the expected rows.
func (s *Session) Response() *api.SessionResponse {
	return &api.SessionResponse{
		SessionID:   s.ID,
		Title:       s.Question.Title,
		Description: s.Question.Description,
		Difficulty:  s.Question.Difficulty,
		Tables:      s.Question.Tables,
		HintCount:   len(s.Question.Hints),
		Namespace:   s.Namespace,
	}
}

// touchLocked records activity. Caller holds s.mu.
func (s *Session) touchLocked(now time.Time) {
	s.lastActive = now
}
