package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/querycache/health"
	"github.com/jonwraymond/querycache/resilience"
)

// TierChecker reports the reachability of a shared tier and, when given,
// the state of the circuit breaker guarding it.
type TierChecker struct {
	name    string
	pinger  Pinger
	breaker *resilience.CircuitBreaker
}

// NewTierChecker creates a health checker. breaker may be nil.
func NewTierChecker(name string, pinger Pinger, breaker *resilience.CircuitBreaker) *TierChecker {
	if name == "" {
		name = "shared_tier"
	}
	return &TierChecker{name: name, pinger: pinger, breaker: breaker}
}

// Name returns the name of this checker.
func (c *TierChecker) Name() string { return c.name }

// Check pings the tier. An open circuit over a reachable tier is degraded.
func (c *TierChecker) Check(ctx context.Context) health.Result {
	start := time.Now()
	details := map[string]any{}
	if c.breaker != nil {
		details["circuit"] = c.breaker.State().String()
	}

	if c.pinger == nil {
		return health.Healthy("no shared tier configured").WithDuration(time.Since(start))
	}

	if err := c.pinger.Ping(ctx); err != nil {
		return health.Unhealthy("shared tier unreachable", err).
			WithDetails(details).
			WithDuration(time.Since(start))
	}

	if c.breaker != nil && c.breaker.State() == resilience.StateOpen {
		return health.Degraded("circuit breaker open").
			WithDetails(details).
			WithDuration(time.Since(start))
	}

	return health.Healthy("shared tier reachable").
		WithDetails(details).
		WithDuration(time.Since(start))
}

// Ping satisfies health.PingChecker.
func (c *TierChecker) Ping(ctx context.Context) error {
	if c.pinger == nil {
		return nil
	}
	return c.pinger.Ping(ctx)
}

var _ health.PingChecker = (*TierChecker)(nil)
