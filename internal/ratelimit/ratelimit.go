// Package ratelimit implements the sliding-window pacing used for
// outbound slow mode.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter permits up to max events per key within a sliding window and
// can report how long a throttled key has to wait for its next slot.
type Limiter struct {
	mu     sync.Mutex
	hist   map[string][]time.Time
	max    int
	window time.Duration
}

// New creates a Limiter allowing max events per window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		hist:   make(map[string][]time.Time),
		max:    max,
		window: window,
	}
}

// Allow records and permits an event unless the key already has max
// events inside the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	recent := l.prune(key, now)
	if len(recent) >= l.max {
		return false
	}
	l.hist[key] = append(recent, now)
	return true
}

// Wait returns how long the key has to wait before its next event
// would be allowed. Zero means an event is allowed now. Nothing is
// recorded.
func (l *Limiter) Wait(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	recent := l.prune(key, now)
	if len(recent) < l.max {
		return 0
	}
	// A slot frees when enough of the oldest events age out of the
	// window for the in-window count to drop below max.
	return recent[len(recent)-l.max].Add(l.window).Sub(now)
}

// Reset forgets all recorded events for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hist, key)
}

// prune drops events that have aged out of the window and returns the
// survivors, oldest first. Caller holds mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	recent := l.hist[key][:0]
	for _, ts := range l.hist[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) == 0 {
		delete(l.hist, key)
		return nil
	}
	l.hist[key] = recent
	return recent
}
