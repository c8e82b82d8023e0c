// Package ratelimit bounds how often each caller may request question
// generation, protecting the model backend from bursty clients.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRequests is returned when a caller has exhausted its
// generation budget for the current window.
var ErrTooManyRequests = errors.New("too many requests")

// Limiter checks whether a generation request from the given caller
// identity should be allowed.
type Limiter interface {
	Allow(ctx context.Context, identity string) error
}

// SlidingWindowLimiter tracks request timestamps per caller identity in
// memory and allows at most Limit requests within any Window-sized
// interval. Rejected requests are never queued.
type SlidingWindowLimiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	history   map[string][]time.Time
	lastSweep time.Time

	now func() time.Time
}

// NewSlidingWindowLimiter creates a limiter allowing limit requests per
// window per identity. A non-positive limit disables limiting.
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		limit:   limit,
		window:  window,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one request for identity and reports whether it fits
// inside the window. With limiting disabled every request is allowed.
func (l *SlidingWindowLimiter) Allow(_ context.Context, identity string) error {
	if l.limit <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := prune(l.history[identity], cutoff)
	if len(recent) >= l.limit {
		l.history[identity] = recent
		return ErrTooManyRequests
	}

	l.history[identity] = append(recent, now)

	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(cutoff)
		l.lastSweep = now
	}
	return nil
}

// prune drops timestamps at or before the cutoff. History is appended
// in order, so the first retained index bounds the copy.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}

// sweepLocked removes identities whose entire history has aged out so
// the map does not grow with every client ever seen.
func (l *SlidingWindowLimiter) sweepLocked(cutoff time.Time) {
	for id, ts := range l.history {
		if len(ts) > 0 && ts[len(ts)-1].After(cutoff) {
			continue
		}
		delete(l.history, id)
	}
}
