package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestOpMeta_SpanName(t *testing.T) {
	if got := (OpMeta{Op: OpRemoveByTags}).SpanName(); got != "cache.remove_by_tags" {
		t.Errorf("SpanName() = %q", got)
	}
}

func TestOpMeta_Validate(t *testing.T) {
	if err := (OpMeta{}).Validate(); !errors.Is(err, ErrMissingOp) {
		t.Errorf("Validate() = %v, want ErrMissingOp", err)
	}
	if err := (OpMeta{Op: OpGet}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTracer_SpanAttributes(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), OpMeta{
		Op:   OpGetOrCreate,
		Key:  "query:orders:1",
		Tags: []string{"orders", "tenant:7"},
	})
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]

	if s.Name() != "cache.get_or_create" {
		t.Errorf("span name = %q", s.Name())
	}
	attrs := attrMap(s.Attributes())
	if attrs["cache.op"].AsString() != OpGetOrCreate {
		t.Errorf("cache.op = %v", attrs["cache.op"])
	}
	if attrs["cache.key"].AsString() != "query:orders:1" {
		t.Errorf("cache.key = %v", attrs["cache.key"])
	}
	if got := attrs["cache.tags"].AsStringSlice(); len(got) != 2 {
		t.Errorf("cache.tags = %v", got)
	}
	if attrs["cache.error"].AsBool() {
		t.Error("cache.error should be false")
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_ErrorRecording(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), OpMeta{Op: OpRemove, Key: "k"})
	tr.EndSpan(span, errors.New("shared tier unavailable"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if s.Status().Description != "shared tier unavailable" {
		t.Errorf("description = %q", s.Status().Description)
	}
	if !attrMap(s.Attributes())["cache.error"].AsBool() {
		t.Error("cache.error should be true")
	}
	if len(s.Events()) == 0 {
		t.Error("expected error event")
	}
}

func TestTracer_ContextPropagation(t *testing.T) {
	tr, recorder := newRecordingTracer()

	ctx, parent := tr.StartSpan(context.Background(), OpMeta{Op: OpGetOrCreate})
	_, child := tr.StartSpan(ctx, OpMeta{Op: OpFactory})
	tr.EndSpan(child, nil)
	tr.EndSpan(parent, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("factory span should be a child of get_or_create span")
	}
}

func TestNewTracer_NilFallsBackToNop(t *testing.T) {
	tr := NewTracer(nil)
	_, span := tr.StartSpan(context.Background(), OpMeta{Op: OpGet})
	if span.IsRecording() {
		t.Error("nop tracer should not record")
	}
	tr.EndSpan(span, errors.New("ignored"))
}
