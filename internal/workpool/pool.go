// Package workpool bounds how many report computations run at once.
package workpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent report computations with a weighted semaphore.
// Each computation holds a database connection for its tenant bracket, so
// the limit is kept at or below the connection pool size.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool that allows at most limit concurrent runs.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot.
// Returns ctx.Err() if ctx is cancelled while waiting.
// A nil pool runs fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
