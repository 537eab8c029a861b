package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds a single attempt.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive duration defaults to 1s.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured limit.
func (t *Timeout) Duration() time.Duration { return t.d }

// Execute runs op with a deadline. The op must honor its context; when the
// deadline set here fires the result is ErrTimeout, while an earlier
// deadline on the caller's context is returned unchanged.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	tctx, cancel := context.WithTimeoutCause(ctx, t.d, ErrTimeout)
	defer cancel()

	err := op(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(context.Cause(tctx), ErrTimeout) {
		return ErrTimeout
	}
	return err
}
