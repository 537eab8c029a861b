package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	e := NewExecutor()
	if e.Breaker() != nil {
		t.Error("default executor should have no breaker")
	}
	calls := 0
	if err := e.Execute(context.Background(), func(context.Context) error { calls++; return nil }); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecutor_ExhaustedRetryCountsOnceAgainstBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(context.Context) error { attempts++; return errStore })
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Fatalf("Execute() error = %v, want ErrMaxRetriesExceeded", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, one exhausted call should count once", cb.State())
	}

	_ = e.Execute(context.Background(), failOp)
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after two failed calls", cb.State())
	}
}

func TestExecutor_TimeoutIsRetried(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithTimeout(10*time.Millisecond),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestNewStoreExecutor(t *testing.T) {
	var transitions []State
	p := DefaultStorePolicy()
	p.MaxFailures = 1
	p.Backoff = time.Millisecond

	e := NewStoreExecutor(p, func(name string, _, to State) {
		if name != "shared_tier" {
			t.Errorf("breaker name = %q", name)
		}
		transitions = append(transitions, to)
	})
	if e.Breaker() == nil || e.retry == nil || e.timeout == nil {
		t.Fatal("store executor should configure breaker, retry and timeout")
	}
	if e.timeout.Duration() != p.AttemptTimeout {
		t.Errorf("timeout = %v, want %v", e.timeout.Duration(), p.AttemptTimeout)
	}

	_ = e.Execute(context.Background(), failOp)
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Errorf("transitions = %v, want [open]", transitions)
	}
}

func TestNewStoreExecutor_SingleAttempt(t *testing.T) {
	p := DefaultStorePolicy()
	p.Attempts = 1
	p.AttemptTimeout = 0
	e := NewStoreExecutor(p, nil)
	if e.retry != nil || e.timeout != nil {
		t.Error("single attempt without timeout should only configure the breaker")
	}
}
