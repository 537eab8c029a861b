package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Tier labels used by RecordLookup.
const (
	TierLocal  = "local"
	TierShared = "shared"
)

// Metrics records cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records a public cache operation with duration and error status.
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordLookup records a hit or miss against one tier.
	RecordLookup(ctx context.Context, tier string, hit bool)

	// RecordFactory records a factory execution and its outcome.
	RecordFactory(ctx context.Context, failure bool, err error)

	// RecordInvalidation records how many keys a removal touched.
	RecordInvalidation(ctx context.Context, meta OpMeta, keys int)
}

type metricsImpl struct {
	opCount      metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	lookupCount  metric.Int64Counter
	factoryCount metric.Int64Counter
	invalidated  metric.Int64Counter
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	opCount, err := meter.Int64Counter(
		"cache.op.total",
		metric.WithDescription("Total number of cache operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"cache.op.errors",
		metric.WithDescription("Total number of failed cache operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.op.duration_ms",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookupCount, err := meter.Int64Counter(
		"cache.lookup.total",
		metric.WithDescription("Tier lookups partitioned by tier and result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	factoryCount, err := meter.Int64Counter(
		"cache.factory.total",
		metric.WithDescription("Factory executions partitioned by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	invalidated, err := meter.Int64Counter(
		"cache.invalidated.keys",
		metric.WithDescription("Keys removed by explicit or tag invalidation"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		opCount:      opCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		lookupCount:  lookupCount,
		factoryCount: factoryCount,
		invalidated:  invalidated,
	}, nil
}

// RecordOperation records metrics for a cache operation. Keys are not used
// as attributes to keep cardinality bounded.
func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("cache.op", meta.Op))

	m.opCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordLookup(ctx context.Context, tier string, hit bool) {
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.tier", tier),
		attribute.Bool("cache.hit", hit),
	))
}

func (m *metricsImpl) RecordFactory(ctx context.Context, failure bool, err error) {
	outcome := "success"
	switch {
	case err != nil:
		outcome = "fault"
	case failure:
		outcome = "failure"
	}
	m.factoryCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.outcome", outcome)))
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, meta OpMeta, keys int) {
	if keys <= 0 {
		return
	}
	m.invalidated.Add(ctx, int64(keys), metric.WithAttributes(attribute.String("cache.op", meta.Op)))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordLookup(context.Context, string, bool)                    {}
func (noopMetrics) RecordFactory(context.Context, bool, error)                    {}
func (noopMetrics) RecordInvalidation(context.Context, OpMeta, int)               {}
