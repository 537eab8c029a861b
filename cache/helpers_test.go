package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingTier records calls made to a wrapped tier.
type countingTier struct {
	Tier
	gets    atomic.Int32
	sets    atomic.Int32
	deletes atomic.Int32
	lastTTL atomic.Int64
}

func (t *countingTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	t.gets.Add(1)
	return t.Tier.Get(ctx, key)
}

func (t *countingTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	t.sets.Add(1)
	t.lastTTL.Store(int64(ttl))
	return t.Tier.Set(ctx, key, value, ttl)
}

func (t *countingTier) Delete(ctx context.Context, key string) error {
	t.deletes.Add(1)
	return t.Tier.Delete(ctx, key)
}

var errTierDown = errors.New("tier down")

// brokenTier fails every call.
type brokenTier struct{}

func (brokenTier) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errTierDown }
func (brokenTier) Set(context.Context, string, []byte, time.Duration) error {
	return errTierDown
}
func (brokenTier) Delete(context.Context, string) error { return errTierDown }
func (brokenTier) Ping(context.Context) error           { return errTierDown }

// testCache is a HybridCache over memory tiers sharing one fake clock.
type testCache struct {
	*HybridCache
	clock  *fakeClock
	local  *MemoryTier
	shared *MemoryTier
}

func newTestCache(t *testing.T, opts ...Option) *testCache {
	t.Helper()
	clock := newFakeClock()
	local := NewMemoryTier(MemoryTierConfig{Clock: clock.Now})
	shared := NewMemoryTier(MemoryTierConfig{Clock: clock.Now})

	all := append([]Option{WithSharedTier(shared), WithClock(clock.Now)}, opts...)
	c, err := New(local, all...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testCache{HybridCache: c, clock: clock, local: local, shared: shared}
}

func staticFactory(value string, failure bool, calls *atomic.Int32) BytesFactory {
	return func(context.Context) ([]byte, bool, error) {
		if calls != nil {
			calls.Add(1)
		}
		return []byte(value), failure, nil
	}
}

// waitForWaiters blocks until n callers are joined on key.
func waitForWaiters(t *testing.T, g *Guard, key string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		w := 0
		if f := g.flights[key]; f != nil {
			w = f.waiters
		}
		g.mu.Unlock()
		if w >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d waiters on %q", n, key)
}

// flakyDeleteTier fails the next failDeletes calls to Delete.
type flakyDeleteTier struct {
	*MemoryTier
	failDeletes atomic.Int32
}

func (t *flakyDeleteTier) Delete(ctx context.Context, key string) error {
	if t.failDeletes.Add(-1) >= 0 {
		return errTierDown
	}
	return t.MemoryTier.Delete(ctx, key)
}
