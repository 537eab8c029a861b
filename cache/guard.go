package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Guard ensures at most one computation per key is in flight.
//
// Callers that arrive while a computation is pending join it and receive
// the same outcome. The computation runs on a context that keeps the values
// of the first caller's context but not its cancellation; it is cancelled
// only once every joined caller has gone away.
//
// Once every caller has left, the key is released and the next caller
// starts a fresh run. Factories must return when their context is
// cancelled; one that ignores cancellation keeps running alongside its
// successor and still writes its result when it finishes.
type Guard struct {
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{flights: make(map[string]*flight)}
}

// Execute runs fn for key unless a run is already pending, in which case
// it waits for that run. leader reports whether this caller's fn ran.
// A caller whose ctx ends returns ctx.Err() without affecting the others.
func (g *Guard) Execute(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (value any, leader bool, err error) {
	if fn == nil {
		return nil, false, ErrNilFactory
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	g.mu.Lock()
	f := g.joinLocked(ctx, key)
	ran := false
	// DoChan does not block, so the join and the singleflight registration
	// happen atomically with respect to leave.
	ch := g.group.DoChan(key, func() (v any, err error) {
		ran = true
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrFactoryPanic, r)
			}
		}()
		return fn(f.ctx)
	})
	g.mu.Unlock()

	select {
	case res := <-ch:
		g.leave(key, f, false)
		return res.Val, ran, res.Err
	case <-ctx.Done():
		g.leave(key, f, true)
		return nil, false, ctx.Err()
	}
}

// InFlight returns the number of keys with at least one waiting caller.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.flights)
}

func (g *Guard) joinLocked(ctx context.Context, key string) *flight {
	f, ok := g.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		g.flights[key] = f
	}
	f.waiters++
	return f
}

func (g *Guard) leave(key string, f *flight, abandoned bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	if g.flights[key] == f {
		delete(g.flights, key)
	}
	if abandoned {
		// Nobody is left to receive the result; let the next caller start over.
		g.group.Forget(key)
	}
	f.cancel()
}
