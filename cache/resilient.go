package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/querycache/resilience"
)

// ResilientTier runs every call of a shared tier through a resilience
// executor. Any failure it returns wraps ErrStoreUnavailable.
type ResilientTier struct {
	inner Tier
	exec  *resilience.Executor
}

// NewResilientTier wraps inner. A nil executor passes calls straight through.
func NewResilientTier(inner Tier, exec *resilience.Executor) (*ResilientTier, error) {
	if inner == nil {
		return nil, ErrNilTier
	}
	if exec == nil {
		exec = resilience.NewExecutor()
	}
	return &ResilientTier{inner: inner, exec: exec}, nil
}

func (t *ResilientTier) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = t.exec.Execute(ctx, func(ctx context.Context) error {
		var gerr error
		value, ok, gerr = t.inner.Get(ctx, key)
		return gerr
	})
	if err != nil {
		return nil, false, unavailable("get", err)
	}
	return value, ok, nil
}

func (t *ResilientTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := t.exec.Execute(ctx, func(ctx context.Context) error {
		return t.inner.Set(ctx, key, value, ttl)
	})
	return unavailable("set", err)
}

func (t *ResilientTier) Delete(ctx context.Context, key string) error {
	err := t.exec.Execute(ctx, func(ctx context.Context) error {
		return t.inner.Delete(ctx, key)
	})
	return unavailable("delete", err)
}

// Ping checks the wrapped tier directly, bypassing the circuit breaker.
func (t *ResilientTier) Ping(ctx context.Context) error {
	p, ok := t.inner.(Pinger)
	if !ok {
		return nil
	}
	return unavailable("ping", p.Ping(ctx))
}

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

var (
	_ Tier   = (*ResilientTier)(nil)
	_ Pinger = (*ResilientTier)(nil)
)
