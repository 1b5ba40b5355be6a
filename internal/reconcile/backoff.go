// ABOUTME: Per-trip exponential retry backoff for transient push failures
// ABOUTME: Delay doubles per consecutive failure up to a fixed cap

package reconcile

import (
	"sync"
	"time"
)

type backoff struct {
	base time.Duration
	max  time.Duration

	mu      sync.Mutex
	entries map[string]*retryEntry
}

type retryEntry struct {
	attempts int
	retryAt  time.Time
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{
		base:    base,
		max:     max,
		entries: make(map[string]*retryEntry),
	}
}

// ready reports whether the key may be retried at the given time.
func (b *backoff) ready(key string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return true
	}
	return !now.Before(e.retryAt)
}

// fail records a failed attempt and returns the next retry time.
func (b *backoff) fail(key string, now time.Time) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		e = &retryEntry{}
		b.entries[key] = e
	}
	e.attempts++

	delay := b.base
	for i := 1; i < e.attempts; i++ {
		delay *= 2
		if delay >= b.max {
			delay = b.max
			break
		}
	}
	e.retryAt = now.Add(delay)
	return e.retryAt
}

// reset clears the retry state after a success or a terminal outcome.
func (b *backoff) reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
}
