package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolLimitsConcurrency(t *testing.T) {
	const limit = 2
	const workers = 8
	pool := NewPool(limit)

	var running, maxSeen atomic.Int32
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Run(context.Background(), func() error {
				cur := running.Add(1)
				for {
					old := maxSeen.Load()
					if cur <= old || maxSeen.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if m := maxSeen.Load(); m > limit {
		t.Errorf("max concurrent = %d, want <= %d", m, limit)
	}
}

func TestPoolCancelledWhileWaiting(t *testing.T) {
	pool := NewPool(1)

	occupied := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = pool.Run(context.Background(), func() error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.Run(ctx, func() error {
		t.Error("fn should not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPoolReturnsFnError(t *testing.T) {
	want := errors.New("boom")
	if err := NewPool(0).Run(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("expected fn error, got %v", err)
	}
}

func TestNilPoolRunsDirectly(t *testing.T) {
	var pool *Pool
	called := false
	if err := pool.Run(context.Background(), func() error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("fn was not called")
	}
}
