package resilience

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a keyed rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second for each key.
	// Default: 5
	Rate float64

	// Burst is the number of calls a key may make at once.
	// Default: 10
	Burst int

	// IdleTimeout drops the bucket of a key unused for this long.
	// Default: 10 minutes
	IdleTimeout time.Duration

	// MaxKeys triggers an early idle sweep once this many keys are tracked.
	// Default: 10000
	MaxKeys int

	// Clock overrides time.Now. Optional.
	Clock func() time.Time
}

// RateLimiter keeps one token bucket per key, typically a client address.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Allow never blocks.
type RateLimiter struct {
	config RateLimiterConfig

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a keyed rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 5
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 10 * time.Minute
	}
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &RateLimiter{
		config:    config,
		buckets:   make(map[string]*bucket),
		lastSweep: config.Clock(),
	}
}

// Allow takes a token for key. When none is left it reports how long
// until the next one.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := rl.config.Clock()
	limiter := rl.limiterFor(key, now)

	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, rl.config.IdleTimeout
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.config.IdleTimeout || len(rl.buckets) >= rl.config.MaxKeys {
		rl.sweepLocked(now)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-rl.config.IdleTimeout)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}
