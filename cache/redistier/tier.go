package redistier

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jonwraymond/querycache/cache"
)

// Tier stores cache entries in Redis.
type Tier struct {
	rdb redis.UniversalClient
	ks  keyspace
}

// NewTier creates a Tier using prefix to namespace keys.
func NewTier(rdb redis.UniversalClient, prefix string) *Tier {
	return &Tier{rdb: rdb, ks: prefixOf(prefix)}
}

// Get returns the stored bytes. A missing key is a miss, not an error.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := t.rdb.Get(ctx, t.ks.entry(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value with SET EX. A non-positive ttl stores nothing.
func (t *Tier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return t.rdb.Set(ctx, t.ks.entry(key), value, ttl).Err()
}

// Delete removes key.
func (t *Tier) Delete(ctx context.Context, key string) error {
	return t.rdb.Del(ctx, t.ks.entry(key)).Err()
}

// Ping checks that Redis answers.
func (t *Tier) Ping(ctx context.Context) error {
	return t.rdb.Ping(ctx).Err()
}

var (
	_ cache.Tier   = (*Tier)(nil)
	_ cache.Pinger = (*Tier)(nil)
)
