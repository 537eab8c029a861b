package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryTierConfig configures a MemoryTier.
type MemoryTierConfig struct {
	// MaxEntries caps the number of stored keys. Zero means unbounded.
	MaxEntries int

	// Pressure reports memory pressure. While it returns true, new keys
	// are not stored. Optional.
	Pressure func() bool

	// Clock overrides time.Now. Optional.
	Clock func() time.Time
}

// MemoryTier is an in-process Tier with lazy expiry.
//
// Writes are best-effort: when the tier is full and purging expired
// entries frees nothing, or when Pressure reports true, a write of a new key
// is skipped. Overwrites of existing keys always succeed.
type MemoryTier struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	config  MemoryTierConfig
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryTier creates an in-memory tier.
func NewMemoryTier(config MemoryTierConfig) *MemoryTier {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.MaxEntries < 0 {
		config.MaxEntries = 0
	}
	return &MemoryTier{
		entries: make(map[string]*memoryEntry),
		config:  config,
	}
}

// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
func (t *MemoryTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	t.mu.RLock()
	entry, ok := t.entries[key]
	t.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !t.config.Clock().Before(entry.expiresAt) {
		t.mu.Lock()
		// Re-check under the write lock; the key may have been replaced.
		if cur, ok := t.entries[key]; ok && cur == entry {
			delete(t.entries, key)
		}
		t.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value with the given TTL. TTL <= 0 stores nothing.
func (t *MemoryTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	now := t.config.Clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists && !t.admitLocked(now) {
		return nil
	}

	t.entries[key] = &memoryEntry{
		value:     value,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (t *MemoryTier) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (t *MemoryTier) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Purge removes expired entries and returns how many were removed.
func (t *MemoryTier) Purge() int {
	now := t.config.Clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.purgeLocked(now)
}

func (t *MemoryTier) admitLocked(now time.Time) bool {
	if t.config.Pressure != nil && t.config.Pressure() {
		return false
	}
	if t.config.MaxEntries == 0 || len(t.entries) < t.config.MaxEntries {
		return true
	}
	t.purgeLocked(now)
	return len(t.entries) < t.config.MaxEntries
}

func (t *MemoryTier) purgeLocked(now time.Time) int {
	removed := 0
	for k, e := range t.entries {
		if !now.Before(e.expiresAt) {
			delete(t.entries, k)
			removed++
		}
	}
	return removed
}

// Ensure MemoryTier implements Tier
var _ Tier = (*MemoryTier)(nil)
