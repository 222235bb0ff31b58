package natskv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/costreport/internal/adapter/natskv"
)

// fakeKV implements the parts of jetstream.KeyValue the cache uses.
type fakeKV struct {
	jetstream.KeyValue
	data map[string][]byte
	err  error
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.data[key] = value
	return uint64(len(f.data)), nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(f.data, key)
	return nil
}

func TestCacheRoundTrip(t *testing.T) {
	kv := &fakeKV{data: make(map[string][]byte)}
	c := natskv.New(kv)
	ctx := context.Background()

	if _, found, err := c.Get(ctx, "report.abc"); err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}
	if err := c.Set(ctx, "report.abc", []byte(`{"data":[]}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := c.Get(ctx, "report.abc")
	if err != nil || !found || string(val) != `{"data":[]}` {
		t.Fatalf("Get = %q, %v, %v", val, found, err)
	}
	if err := c.Delete(ctx, "report.abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "report.abc"); err != nil {
		t.Fatalf("deleting a missing key should succeed, got %v", err)
	}
}

func TestCacheWrapsErrors(t *testing.T) {
	boom := errors.New("nats: timeout")
	c := natskv.New(&fakeKV{data: map[string][]byte{}, err: boom})
	ctx := context.Background()

	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, boom) {
		t.Errorf("Get: expected wrapped error, got %v", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, boom) {
		t.Errorf("Set: expected wrapped error, got %v", err)
	}
	if err := c.Delete(ctx, "k"); !errors.Is(err, boom) {
		t.Errorf("Delete: expected wrapped error, got %v", err)
	}
}
