// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/costreport/internal/port/cache"
	"github.com/Strob0t/costreport/internal/resilience"
)

// Defaults for the breaker guarding L2.
const (
	l2FailureLimit = 3
	l2Cooldown     = 30 * time.Second
)

// Cache combines an L1 (in-process) and L2 (remote) cache.
// Get checks L1 first, then L2 (backfilling L1 on L2 hit).
// Set and Delete operate on both levels. An unavailable L2 degrades to a
// miss on Get so a report can still be computed, and repeated L2 failures
// open a breaker that skips L2 until it recovers.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
	breaker  *resilience.Breaker
}

// New creates a tiered cache with the given L1 and L2 backends.
// l1Expire controls how long L2 backfill entries live in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return NewWithBreaker(l1, l2, l1Expire, resilience.NewBreaker(l2FailureLimit, l2Cooldown))
}

// NewWithBreaker is New with an explicit L2 breaker.
func NewWithBreaker(l1, l2 cache.Cache, l1Expire time.Duration, b *resilience.Breaker) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire, breaker: b}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	err = c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		val, found, err = c.l2.Get(ctx, key)
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrOpen) {
			slog.WarnContext(ctx, "l2 cache get failed", "key", key, "error", err)
		}
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	_ = c.l1.Set(ctx, key, val, c.l1Expire)
	return val, true, nil
}

// Set writes to both levels. The L2 write is attempted even when L1 fails
// and skipped while the breaker is open.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Join(
		c.l1.Set(ctx, key, value, ttl),
		c.l2Do(ctx, func(ctx context.Context) error { return c.l2.Set(ctx, key, value, ttl) }),
	)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(
		c.l1.Delete(ctx, key),
		c.l2Do(ctx, func(ctx context.Context) error { return c.l2.Delete(ctx, key) }),
	)
}

func (c *Cache) l2Do(ctx context.Context, fn func(context.Context) error) error {
	if err := c.breaker.Do(ctx, fn); !errors.Is(err, resilience.ErrOpen) {
		return err
	}
	return nil
}
