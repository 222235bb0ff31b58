// Package resilience guards calls to shared dependencies that the report
// pipeline can live without, such as the L2 report cache.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker skips calls.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker skips calls to a dependency for a cool-down period once it has
// failed limit times in a row. After the cool-down a single trial call is
// let through; its outcome closes or re-opens the circuit.
type Breaker struct {
	mu        sync.Mutex
	failures  int
	limit     int
	cooldown  time.Duration
	openUntil time.Time
	trial     bool
	now       func() time.Time
}

// NewBreaker creates a Breaker. A limit below 1 is treated as 1.
func NewBreaker(limit int, cooldown time.Duration) *Breaker {
	return &Breaker{limit: max(limit, 1), cooldown: cooldown, now: time.Now}
}

// Do runs fn unless the circuit is open. Failures caused by ctx ending are
// not held against the dependency.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	trial, ok := b.acquire()
	if !ok {
		return ErrOpen
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if trial {
		b.trial = false
	}
	switch {
	case err == nil:
		b.failures = 0
		b.openUntil = time.Time{}
	case ctx.Err() != nil:
	default:
		b.failures++
		if trial || b.failures >= b.limit {
			b.openUntil = b.now().Add(b.cooldown)
		}
	}
	return err
}

// Open reports whether calls are currently being skipped.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.openUntil.IsZero() && (b.now().Before(b.openUntil) || b.trial)
}

func (b *Breaker) acquire() (trial, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.openUntil.IsZero():
		return false, true
	case b.now().Before(b.openUntil), b.trial:
		return false, false
	default:
		b.trial = true
		return true, true
	}
}
