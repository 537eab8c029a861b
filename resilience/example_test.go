package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/querycache/resilience"
)

func ExampleNewCircuitBreaker() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "redis",
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()
	down := errors.New("connection refused")

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return down })
	}
	fmt.Println("State:", cb.State())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	fmt.Println("Rejected:", errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// State: open
	// Rejected: true
}

func ExampleRetry_Execute() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Strategy:     resilience.BackoffConstant,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	fmt.Println("Attempts:", attempts, "Error:", err)
	// Output:
	// Attempts: 2 Error: <nil>
}

func ExampleNewStoreExecutor() {
	exec := resilience.NewStoreExecutor(resilience.DefaultStorePolicy(), nil)

	err := exec.Execute(context.Background(), func(context.Context) error {
		return nil
	})
	fmt.Println("Breaker:", exec.Breaker().State(), "Error:", err)
	// Output:
	// Breaker: closed Error: <nil>
}
