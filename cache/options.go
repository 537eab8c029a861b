package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/querycache/observe"
)

// SharedFailurePolicy decides what happens when the shared tier faults.
type SharedFailurePolicy int

const (
	// FailFast surfaces shared tier read faults as ErrStoreUnavailable.
	FailFast SharedFailurePolicy = iota

	// Degrade logs shared tier faults and continues with the local tier only.
	Degrade
)

// String returns the configuration name of the policy.
func (p SharedFailurePolicy) String() string {
	switch p {
	case Degrade:
		return "degrade"
	default:
		return "failfast"
	}
}

// ParseSharedFailurePolicy parses "failfast" or "degrade". Empty means failfast.
func ParseSharedFailurePolicy(s string) (SharedFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "failfast", "fail_fast":
		return FailFast, nil
	case "degrade":
		return Degrade, nil
	default:
		return FailFast, fmt.Errorf("cache: unknown shared failure policy %q", s)
	}
}

// Invalidator broadcasts removed keys to peer processes.
type Invalidator interface {
	Publish(ctx context.Context, keys []string) error
}

// Option configures a HybridCache or an EntryStore.
type Option func(*options)

type options struct {
	shared      Tier
	tags        TagIndex
	invalidator Invalidator
	policy      SharedFailurePolicy
	logger      observe.Logger
	metrics     observe.Metrics
	tracer      observe.Tracer
	clock       func() time.Time
}

func newOptions(opts []Option) *options {
	o := &options{policy: FailFast}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = observe.NopLogger()
	}
	if o.metrics == nil {
		o.metrics = observe.NopMetrics()
	}
	if o.tracer == nil {
		o.tracer = observe.NopTracer()
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.tags == nil {
		o.tags = NewMemoryTagIndex(o.clock)
	}
	return o
}

// WithSharedTier sets the cross-process tier. Without it the cache is local only.
func WithSharedTier(t Tier) Option {
	return func(o *options) { o.shared = t }
}

// WithTagIndex sets the tag index. Defaults to a MemoryTagIndex.
func WithTagIndex(idx TagIndex) Option {
	return func(o *options) { o.tags = idx }
}

// WithInvalidator sets the peer invalidation publisher.
func WithInvalidator(inv Invalidator) Option {
	return func(o *options) { o.invalidator = inv }
}

// WithSharedFailurePolicy sets the shared tier failure policy. Defaults to FailFast.
func WithSharedFailurePolicy(p SharedFailurePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t observe.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithClock overrides time.Now for entry timestamps and the default tag index.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}
