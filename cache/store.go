package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/querycache/observe"
)

// EntryStore reads and writes entries across the local and shared tiers
// and keeps the tag index in step with removals.
//
// Reads check the local tier first and fall back to the shared tier,
// copying shared hits into the local tier. Writes go to the shared tier
// first; the local write is best-effort.
type EntryStore struct {
	local   Tier
	shared  Tier
	tags    TagIndex
	policy  SharedFailurePolicy
	logger  observe.Logger
	metrics observe.Metrics
	now     func() time.Time
}

// NewEntryStore creates an entry store over local and the options' shared tier.
func NewEntryStore(local Tier, opts ...Option) (*EntryStore, error) {
	if local == nil {
		return nil, ErrNilTier
	}
	return newEntryStore(local, newOptions(opts)), nil
}

func newEntryStore(local Tier, o *options) *EntryStore {
	return &EntryStore{
		local:   local,
		shared:  o.shared,
		tags:    o.tags,
		policy:  o.policy,
		logger:  o.logger,
		metrics: o.metrics,
		now:     o.clock,
	}
}

// Get returns the entry for key. A corrupt envelope counts as a miss and
// is deleted from the tier it came from.
func (s *EntryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if e, ok := s.getLocal(ctx, key); ok {
		return e, true, nil
	}
	if s.shared == nil {
		return Entry{}, false, nil
	}

	data, ok, err := s.shared.Get(ctx, key)
	if err != nil {
		if err := s.sharedFault(ctx, "shared read failed", key, err); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}
	s.metrics.RecordLookup(ctx, observe.TierShared, ok)
	if !ok {
		return Entry{}, false, nil
	}

	e, err := decodeEntry(data)
	if err != nil {
		s.logger.Warn(ctx, "discarding shared entry", observe.F("cache.key", key), observe.F("error", err))
		_ = s.shared.Delete(ctx, key)
		return Entry{}, false, nil
	}

	now := s.now()
	if e.remaining(now) <= 0 {
		return Entry{}, false, nil
	}
	if err := s.local.Set(ctx, key, data, e.localTTL(now)); err != nil {
		s.logger.Warn(ctx, "local populate failed", observe.F("cache.key", key), observe.F("error", err))
	}
	return e, true, nil
}

func (s *EntryStore) getLocal(ctx context.Context, key string) (Entry, bool) {
	data, ok, err := s.local.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "local read failed", observe.F("cache.key", key), observe.F("error", err))
		return Entry{}, false
	}
	s.metrics.RecordLookup(ctx, observe.TierLocal, ok)
	if !ok {
		return Entry{}, false
	}

	e, err := decodeEntry(data)
	if err != nil {
		s.logger.Warn(ctx, "discarding local entry", observe.F("cache.key", key), observe.F("error", err))
		_ = s.local.Delete(ctx, key)
		return Entry{}, false
	}
	return e, true
}

// Put stamps e with its timestamps and writes it to both tiers, replacing
// any previous entry, then attaches its tags.
func (s *EntryStore) Put(ctx context.Context, key string, e Entry, localTTL, sharedTTL time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	now := s.now()
	e.CreatedAt = now
	e.ExpiresAt = now.Add(sharedTTL)
	e.LocalTTL = localTTL
	e.Tags = NormalizeTags(e.Tags)

	data, err := encodeEntry(e)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}

	if s.shared != nil {
		if err := s.shared.Set(ctx, key, data, sharedTTL); err != nil {
			if err := s.sharedFault(ctx, "shared write failed", key, err); err != nil {
				return err
			}
		}
	}

	if err := s.local.Set(ctx, key, data, localTTL); err != nil {
		s.logger.Warn(ctx, "local write failed", observe.F("cache.key", key), observe.F("error", err))
	}

	if len(e.Tags) > 0 {
		if err := s.tags.Attach(ctx, key, e.Tags, now.Add(max(localTTL, sharedTTL))); err != nil {
			return fmt.Errorf("cache: attach tags: %w", err)
		}
	}
	return nil
}

// Remove deletes key from both tiers and then from the tag index.
// Removing an absent key is not an error. When the shared delete fails the
// key keeps its tags, so a later tag invalidation can still reach it.
func (s *EntryStore) Remove(ctx context.Context, key string) error {
	var errs []error

	sharedGone := true
	if s.shared != nil {
		if err := s.shared.Delete(ctx, key); err != nil {
			sharedGone = false
			if err := s.sharedFault(ctx, "shared delete failed", key, err); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := s.local.Delete(ctx, key); err != nil {
		errs = append(errs, err)
	}
	if sharedGone {
		if err := s.tags.Detach(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("cache: detach tags: %w", err))
		}
	}
	return errors.Join(errs...)
}

// EvictLocal drops keys from the local tier only.
func (s *EntryStore) EvictLocal(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.local.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "local evict failed", observe.F("cache.key", key), observe.F("error", err))
		}
	}
}

// sharedFault applies the failure policy. It returns nil when the fault
// is absorbed.
func (s *EntryStore) sharedFault(ctx context.Context, msg, key string, err error) error {
	if !errors.Is(err, ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if s.policy == Degrade {
		s.logger.Warn(ctx, msg, observe.F("cache.key", key), observe.F("error", err))
		return nil
	}
	return err
}
