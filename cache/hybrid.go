package cache

import (
	"context"

	"github.com/jonwraymond/querycache/observe"
)

// BytesFactory produces the value for a missing key. failure marks a
// domain-level failure result, which is cached but for FailureExpiration.
// A non-nil error is a fault: nothing is cached and every joined caller
// receives the error.
type BytesFactory func(ctx context.Context) (value []byte, failure bool, err error)

// QueryService is the capability handed to application code.
type QueryService interface {
	GetOrCreateBytes(ctx context.Context, key string, factory BytesFactory, settings Settings, tags ...string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, failure bool, settings Settings, tags ...string) error
	Remove(ctx context.Context, key string) error
	RemoveByTag(ctx context.Context, tag string) error
	RemoveByTags(ctx context.Context, tags []string) error
}

// HybridCache is a two-tier cache with stampede protection, failure-aware
// expiration and tag invalidation.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: a caller whose context ends returns ctx.Err(); a factory
//     shared with other callers keeps running until all of them have left.
//   - Errors: store write faults after a factory ran are logged, not returned.
type HybridCache struct {
	store       *EntryStore
	tags        TagIndex
	guard       *Guard
	invalidator Invalidator
	inst        *observe.Instrumenter
	logger      observe.Logger
	metrics     observe.Metrics
}

// New creates a HybridCache over the given local tier.
func New(local Tier, opts ...Option) (*HybridCache, error) {
	if local == nil {
		return nil, ErrNilTier
	}
	o := newOptions(opts)
	return &HybridCache{
		store:       newEntryStore(local, o),
		tags:        o.tags,
		guard:       NewGuard(),
		invalidator: o.invalidator,
		inst:        observe.NewInstrumenter(o.tracer, o.metrics, o.logger),
		logger:      o.logger,
		metrics:     o.metrics,
	}, nil
}

// Store returns the underlying entry store.
func (c *HybridCache) Store() *EntryStore { return c.store }

// InFlight returns the number of keys with a pending factory.
func (c *HybridCache) InFlight() int { return c.guard.InFlight() }

type outcome struct {
	value   []byte
	failure bool
}

// GetOrCreateBytes returns the cached value for key, or runs factory once
// across all concurrent callers and caches its result.
func (c *HybridCache) GetOrCreateBytes(ctx context.Context, key string, factory BytesFactory, settings Settings, tags ...string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	if factory == nil {
		return nil, false, ErrNilFactory
	}
	if err := settings.Validate(); err != nil {
		return nil, false, err
	}
	tags = NormalizeTags(tags)

	var out outcome
	err := c.inst.Do(ctx, observe.OpMeta{Op: observe.OpGetOrCreate, Key: key, Tags: tags}, func(ctx context.Context) error {
		e, ok, err := c.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			out = outcome{value: e.Value, failure: e.Failure}
			return nil
		}

		v, _, err := c.guard.Execute(ctx, key, func(fctx context.Context) (any, error) {
			return c.compute(fctx, key, factory, settings, tags)
		})
		if err != nil {
			return err
		}
		out = v.(outcome)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out.value, out.failure, nil
}

// compute runs under the guard. It looks again before calling the factory
// so a caller that missed just before another run finished does not
// recompute.
func (c *HybridCache) compute(ctx context.Context, key string, factory BytesFactory, settings Settings, tags []string) (outcome, error) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return outcome{}, err
	}
	if ok {
		return outcome{value: e.Value, failure: e.Failure}, nil
	}

	var (
		value   []byte
		failure bool
	)
	err = c.inst.Do(ctx, observe.OpMeta{Op: observe.OpFactory, Key: key}, func(ctx context.Context) error {
		var ferr error
		value, failure, ferr = factory(ctx)
		return ferr
	})
	c.metrics.RecordFactory(ctx, failure, err)
	if err != nil {
		return outcome{}, err
	}

	localTTL, sharedTTL := settings.TTLs(failure)
	entry := Entry{Value: value, Failure: failure, Tags: tags}
	if err := c.store.Put(ctx, key, entry, localTTL, sharedTTL); err != nil {
		c.logger.Warn(ctx, "cache write failed",
			observe.F("cache.key", key),
			observe.F("failure", failure),
			observe.F("error", err),
		)
	}
	return outcome{value: value, failure: failure}, nil
}

// Set writes value for key, replacing any previous entry, and tells peers
// to drop their local copies.
func (c *HybridCache) Set(ctx context.Context, key string, value []byte, failure bool, settings Settings, tags ...string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	tags = NormalizeTags(tags)

	return c.inst.Do(ctx, observe.OpMeta{Op: observe.OpSet, Key: key, Tags: tags}, func(ctx context.Context) error {
		localTTL, sharedTTL := settings.TTLs(failure)
		if err := c.store.Put(ctx, key, Entry{Value: value, Failure: failure, Tags: tags}, localTTL, sharedTTL); err != nil {
			return err
		}
		c.publish(ctx, []string{key})
		return nil
	})
}

// TryGet returns the cached value for key without running any factory.
func (c *HybridCache) TryGet(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	var (
		value []byte
		found bool
	)
	err := c.inst.Do(ctx, observe.OpMeta{Op: observe.OpGet, Key: key}, func(ctx context.Context) error {
		e, ok, err := c.store.Get(ctx, key)
		if err != nil {
			return err
		}
		value, found = e.Value, ok
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Remove deletes key from every tier. Removing an absent key is a no-op.
func (c *HybridCache) Remove(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	meta := observe.OpMeta{Op: observe.OpRemove, Key: key}
	return c.inst.Do(ctx, meta, func(ctx context.Context) error {
		if err := c.store.Remove(ctx, key); err != nil {
			return err
		}
		c.metrics.RecordInvalidation(ctx, meta, 1)
		c.publish(ctx, []string{key})
		return nil
	})
}

// RemoveByTag removes every key written under tag.
func (c *HybridCache) RemoveByTag(ctx context.Context, tag string) error {
	return c.removeByTags(ctx, observe.OpRemoveByTag, []string{tag})
}

// RemoveByTags removes every key written under any of tags. A key under
// several of the tags is removed once.
func (c *HybridCache) RemoveByTags(ctx context.Context, tags []string) error {
	return c.removeByTags(ctx, observe.OpRemoveByTags, tags)
}

func (c *HybridCache) removeByTags(ctx context.Context, op string, tags []string) error {
	tags = NormalizeTags(tags)
	if len(tags) == 0 {
		return nil
	}

	meta := observe.OpMeta{Op: op, Tags: tags}
	return c.inst.Do(ctx, meta, func(ctx context.Context) error {
		removed, err := InvalidateTags(ctx, c.tags, tags, c.store.Remove)
		c.metrics.RecordInvalidation(ctx, meta, len(removed))
		c.publish(ctx, removed)
		return err
	})
}

// HandleInvalidation applies a peer's removal to the local tier.
func (c *HybridCache) HandleInvalidation(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	_ = c.inst.Do(ctx, observe.OpMeta{Op: observe.OpInvalidate}, func(ctx context.Context) error {
		c.store.EvictLocal(ctx, keys...)
		return nil
	})
}

func (c *HybridCache) publish(ctx context.Context, keys []string) {
	if c.invalidator == nil || len(keys) == 0 {
		return
	}
	if err := c.invalidator.Publish(ctx, keys); err != nil {
		c.logger.Warn(ctx, "invalidation publish failed", observe.F("keys", len(keys)), observe.F("error", err))
	}
}

// Ensure HybridCache implements QueryService
var _ QueryService = (*HybridCache)(nil)
