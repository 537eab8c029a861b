package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// tagSweepInterval bounds how often MemoryTagIndex scans every key for expiry.
const tagSweepInterval = time.Minute

// TagIndex maps tags to the keys written under them.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Idempotency: Attach and Detach may be repeated without error.
// - Expiry: a key is dropped from its tags once its expiresAt has passed.
// - Ownership: returned slices are owned by the caller.
type TagIndex interface {
	// Attach adds key to the key set of every tag. The association lives
	// until expiresAt or until key is detached.
	Attach(ctx context.Context, key string, tags []string, expiresAt time.Time) error

	// KeysForTag returns the unexpired keys currently associated with tag.
	KeysForTag(ctx context.Context, tag string) ([]string, error)

	// Detach removes key from every tag set it belongs to.
	Detach(ctx context.Context, key string) error
}

// MemoryTagIndex is an in-process TagIndex guarded by a single mutex.
type MemoryTagIndex struct {
	mu        sync.Mutex
	now       func() time.Time
	byTag     map[string]map[string]struct{}
	keyTags   map[string]map[string]struct{}
	expires   map[string]time.Time
	nextSweep time.Time
}

// NewMemoryTagIndex creates an empty tag index. A nil clock means time.Now.
func NewMemoryTagIndex(clock func() time.Time) *MemoryTagIndex {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTagIndex{
		now:     clock,
		byTag:   make(map[string]map[string]struct{}),
		keyTags: make(map[string]map[string]struct{}),
		expires: make(map[string]time.Time),
	}
}

// Attach adds key under each non-blank tag. A later Attach for the same
// key replaces its expiry.
func (x *MemoryTagIndex) Attach(_ context.Context, key string, tags []string, expiresAt time.Time) error {
	tags = NormalizeTags(tags)
	if len(tags) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	now := x.now()
	x.maybeSweepLocked(now)
	if !expiresAt.After(now) {
		return nil
	}

	owned := x.keyTags[key]
	if owned == nil {
		owned = make(map[string]struct{}, len(tags))
		x.keyTags[key] = owned
	}
	for _, tag := range tags {
		keys := x.byTag[tag]
		if keys == nil {
			keys = make(map[string]struct{})
			x.byTag[tag] = keys
		}
		keys[key] = struct{}{}
		owned[tag] = struct{}{}
	}
	x.expires[key] = expiresAt
	return nil
}

// KeysForTag returns the unexpired keys under tag in sorted order.
// Expired keys found on the way are detached.
func (x *MemoryTagIndex) KeysForTag(_ context.Context, tag string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	now := x.now()
	for key := range x.byTag[tag] {
		if x.expiredLocked(key, now) {
			x.detachLocked(key)
		}
	}
	return sortedSet(x.byTag[tag]), nil
}

// Detach removes key from all tags. Tags left empty are dropped.
func (x *MemoryTagIndex) Detach(_ context.Context, key string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.detachLocked(key)
	return nil
}

// Len returns the number of keys holding at least one tag.
func (x *MemoryTagIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.keyTags)
}

func (x *MemoryTagIndex) expiredLocked(key string, now time.Time) bool {
	at, ok := x.expires[key]
	return ok && !at.After(now)
}

func (x *MemoryTagIndex) detachLocked(key string) {
	for tag := range x.keyTags[key] {
		keys := x.byTag[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(x.byTag, tag)
		}
	}
	delete(x.keyTags, key)
	delete(x.expires, key)
}

// maybeSweepLocked detaches every expired key, at most once per
// tagSweepInterval, so keys under tags that are never read still go away.
func (x *MemoryTagIndex) maybeSweepLocked(now time.Time) {
	if now.Before(x.nextSweep) {
		return
	}
	for key, at := range x.expires {
		if !at.After(now) {
			x.detachLocked(key)
		}
	}
	x.nextSweep = now.Add(tagSweepInterval)
}

// InvalidateTags removes every key listed under any of tags through
// remove, each key once, and returns the keys removed. remove is expected
// to detach a key only after its entry is gone, so a key whose removal
// failed stays listed under its tags and a later call reaches it again.
func InvalidateTags(ctx context.Context, idx TagIndex, tags []string, remove func(ctx context.Context, key string) error) ([]string, error) {
	seen := make(map[string]struct{})
	var errs []error
	for _, tag := range NormalizeTags(tags) {
		keys, err := idx.KeysForTag(ctx, tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("tag %q: %w", tag, err))
			continue
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
	}

	var removed []string
	for _, key := range sortedSet(seen) {
		if err := remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %q: %w", key, err))
			continue
		}
		removed = append(removed, key)
	}
	return removed, errors.Join(errs...)
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Ensure MemoryTagIndex implements TagIndex
var _ TagIndex = (*MemoryTagIndex)(nil)
