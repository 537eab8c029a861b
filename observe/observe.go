package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/querycache/observe/exporters"
)

// Config selects which telemetry signals the cache emits and where they go.
// A signal that is not Enabled costs nothing at runtime.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig controls span export for cache operations.
type TracingConfig struct {
	Enabled bool

	// Exporter is one of ValidTracingExporters.
	Exporter string

	// SamplePct is the fraction of root spans kept, from 0 to 1.
	SamplePct float64
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	Enabled bool

	// Exporter is one of ValidMetricsExporters.
	Exporter string
}

// LoggingConfig controls the JSON event log.
type LoggingConfig struct {
	Enabled bool

	// Level is one of ValidLogLevels.
	Level string

	// Output receives JSON log lines. Default: os.Stderr.
	Output io.Writer
}

// Validate checks only the signals that are enabled.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	t := c.Tracing
	if t.Enabled {
		if err := oneOf(ErrInvalidTracingExporter, t.Exporter, ValidTracingExporters); err != nil {
			return err
		}
		if t.SamplePct < 0 || t.SamplePct > 1 {
			return fmt.Errorf("%w: got %f", ErrInvalidSamplePct, t.SamplePct)
		}
	}
	if c.Metrics.Enabled {
		if err := oneOf(ErrInvalidMetricsExporter, c.Metrics.Exporter, ValidMetricsExporters); err != nil {
			return err
		}
	}
	if c.Logging.Enabled {
		return oneOf(ErrInvalidLogLevel, c.Logging.Level, ValidLogLevels)
	}
	return nil
}

func oneOf(sentinel error, got string, allowed []string) error {
	if slices.Contains(allowed, got) {
		return nil
	}
	return fmt.Errorf("%w: %q", sentinel, got)
}

// Observer hands out the tracer, meter and logger built from a Config and
// owns the SDK providers behind them.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Shutdown flushes pending spans and metrics within ctx and joins any errors.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

// Logger writes structured events. Implementations never panic and drop
// entries they cannot write.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithOp(meta OpMeta) Logger
}

// Field is one key/value pair attached to a log event.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// NewObserver builds the providers for every enabled signal and registers
// them as the otel globals. Disabled signals get no-op implementations.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: newEventLog(cfg.Logging),
	}
	if !cfg.Tracing.Enabled && !cfg.Metrics.Enabled {
		return o, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		if err := o.startTracing(ctx, cfg, res); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics.Enabled {
		if err := o.startMetrics(ctx, cfg, res); err != nil {
			_ = o.Shutdown(ctx)
			return nil, err
		}
	}
	return o, nil
}

func newEventLog(cfg LoggingConfig) Logger {
	if !cfg.Enabled {
		return NopLogger()
	}
	if cfg.Output == nil {
		return NewLoggerWithWriter(cfg.Level, os.Stderr)
	}
	return NewLoggerWithWriter(cfg.Level, cfg.Output)
}

// samplerFor keeps pct of root spans; child spans follow their parent.
func samplerFor(pct float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(pct)
	switch {
	case pct >= 1:
		root = sdktrace.AlwaysSample()
	case pct <= 0:
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}

func (o *observer) startTracing(ctx context.Context, cfg Config, res *resource.Resource) error {
	exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
	if err != nil {
		return fmt.Errorf("observe: tracing exporter %q: %w", cfg.Tracing.Exporter, err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.Tracing.SamplePct)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	o.tp = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(o.tp)
	o.tracer = o.tp.Tracer(cfg.ServiceName)
	return nil
}

func (o *observer) startMetrics(ctx context.Context, cfg Config, res *resource.Resource) error {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
	if err != nil {
		return fmt.Errorf("observe: metrics exporter %q: %w", cfg.Metrics.Exporter, err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	o.mp = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(o.mp)
	o.meter = o.mp.Meter(cfg.ServiceName)
	return nil
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tp != nil {
		if err := o.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observe: tracer provider: %w", err))
		}
	}
	if o.mp != nil {
		if err := o.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observe: meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NopLogger returns a Logger that drops every entry.
func NopLogger() Logger { return discardLogger{} }

type discardLogger struct{}

func (discardLogger) Info(context.Context, string, ...Field)  {}
func (discardLogger) Warn(context.Context, string, ...Field)  {}
func (discardLogger) Error(context.Context, string, ...Field) {}
func (discardLogger) Debug(context.Context, string, ...Field) {}
func (l discardLogger) WithOp(OpMeta) Logger                  { return l }
