// Package natskv implements the cache port using NATS JetStream KV as the
// shared L2 report cache.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Cache wraps a NATS JetStream KeyValue store as an L2 cache.
type Cache struct {
	kv jetstream.KeyValue
}

// New creates a NATS KV-backed cache.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Connect dials NATS and opens (or creates) the report cache bucket. Entry
// expiry is a bucket property, so ttl applies to every key. The returned
// connection must be closed by the caller.
func Connect(ctx context.Context, url, bucket string, ttl time.Duration) (*Cache, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("costreport"))
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "encoded cost reports",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream kv %s: %w", bucket, err)
	}

	slog.Info("nats kv connected", "url", url, "bucket", bucket, "ttl", ttl)
	return New(kv), nc, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set stores a value. The ttl argument is ignored; expiry is managed at
// bucket level.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := c.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}
