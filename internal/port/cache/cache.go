// Package cache defines the port interface for the encoded report cache.
package cache

import (
	"context"
	"time"
)

// Cache stores encoded report bodies by key. A miss is reported through the
// bool result, never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
