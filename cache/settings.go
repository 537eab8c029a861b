package cache

import (
	"fmt"
	"time"
)

// Settings controls how long an entry lives in each tier.
type Settings struct {
	// Expiration is the shared tier TTL. Required.
	Expiration time.Duration

	// LocalExpiration is the local tier TTL. Zero means Expiration.
	// A value above Expiration is accepted as-is.
	LocalExpiration time.Duration

	// FailureExpiration replaces both TTLs when the produced value is a
	// failure result. Zero means unset.
	FailureExpiration time.Duration
}

// DefaultSettings returns 5 minutes shared, 1 minute local and no failure override.
func DefaultSettings() Settings {
	return Settings{
		Expiration:      5 * time.Minute,
		LocalExpiration: time.Minute,
	}
}

// Validate rejects negative durations and a zero Expiration.
func (s Settings) Validate() error {
	if s.Expiration <= 0 {
		return fmt.Errorf("%w: expiration must be positive, got %s", ErrInvalidSettings, s.Expiration)
	}
	if s.LocalExpiration < 0 {
		return fmt.Errorf("%w: local expiration must not be negative, got %s", ErrInvalidSettings, s.LocalExpiration)
	}
	if s.FailureExpiration < 0 {
		return fmt.Errorf("%w: failure expiration must not be negative, got %s", ErrInvalidSettings, s.FailureExpiration)
	}
	return nil
}

// TTLs returns the local and shared TTL for an entry with the given outcome.
func (s Settings) TTLs(failure bool) (local, shared time.Duration) {
	if failure && s.FailureExpiration > 0 {
		return s.FailureExpiration, s.FailureExpiration
	}
	local = s.LocalExpiration
	if local == 0 {
		local = s.Expiration
	}
	return local, s.Expiration
}
