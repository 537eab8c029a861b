package resilience

import (
	"context"
	"errors"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last error once all attempts fail.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when a single attempt exceeds its time limit.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrRateLimitExceeded is returned when a caller has no token left.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")
)

// IsTransient reports whether err is worth retrying. Caller cancellation,
// caller deadlines and an open circuit are not.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCircuitOpen):
		return false
	case errors.Is(err, ErrTimeout):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// isCallerCancellation reports errors caused by the caller going away
// rather than by the guarded store.
func isCallerCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
