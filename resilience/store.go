package resilience

import "time"

// StorePolicy is the resilience configuration for a shared cache store.
type StorePolicy struct {
	// MaxFailures opens the circuit after this many consecutive failed calls.
	MaxFailures int

	// ResetTimeout is how long the circuit stays open.
	ResetTimeout time.Duration

	// Attempts per call, including the first.
	Attempts int

	// Backoff is the constant delay between attempts.
	Backoff time.Duration

	// AttemptTimeout bounds each attempt.
	AttemptTimeout time.Duration
}

// DefaultStorePolicy suits a shared tier on the local network: a cache
// read is never worth more than a few hundred milliseconds.
func DefaultStorePolicy() StorePolicy {
	return StorePolicy{
		MaxFailures:    5,
		ResetTimeout:   10 * time.Second,
		Attempts:       2,
		Backoff:        20 * time.Millisecond,
		AttemptTimeout: 250 * time.Millisecond,
	}
}

// NewStoreExecutor builds an executor from p. onStateChange may be nil.
func NewStoreExecutor(p StorePolicy, onStateChange func(name string, from, to State)) *Executor {
	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		Name:          "shared_tier",
		MaxFailures:   p.MaxFailures,
		ResetTimeout:  p.ResetTimeout,
		OnStateChange: onStateChange,
	})

	opts := []ExecutorOption{WithCircuitBreaker(breaker)}
	if p.Attempts > 1 {
		opts = append(opts, WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  p.Attempts,
			InitialDelay: p.Backoff,
			Strategy:     BackoffConstant,
		})))
	}
	if p.AttemptTimeout > 0 {
		opts = append(opts, WithTimeout(p.AttemptTimeout))
	}
	return NewExecutor(opts...)
}
