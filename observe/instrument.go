package observe

import (
	"context"
	"time"
)

// Instrumenter wraps cache operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Do propagates the span context to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Instrumenter struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumenter creates an Instrumenter. Nil components are replaced by no-ops.
func NewInstrumenter(tracer Tracer, metrics Metrics, logger Logger) *Instrumenter {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instrumenter{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Logger returns the underlying logger.
func (in *Instrumenter) Logger() Logger { return in.logger }

// Metrics returns the underlying metrics recorder.
func (in *Instrumenter) Metrics() Metrics { return in.metrics }

// Do runs fn inside a span named after meta, then records duration and
// outcome. Successful operations log at debug level, failures at error level.
func (in *Instrumenter) Do(ctx context.Context, meta OpMeta, fn func(ctx context.Context) error) error {
	ctx, span := in.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	in.tracer.EndSpan(span, err)
	in.metrics.RecordOperation(ctx, meta, duration, err)

	opLogger := in.logger.WithOp(meta)
	fields := []Field{F("duration_ms", float64(duration.Microseconds())/1000)}
	if err != nil {
		fields = append(fields, F("error", err))
		opLogger.Error(ctx, "cache operation failed", fields...)
	} else {
		opLogger.Debug(ctx, "cache operation completed", fields...)
	}

	return err
}
