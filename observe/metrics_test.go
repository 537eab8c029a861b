package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// sumFor totals every data point of an int64 sum whose attributes contain all of want.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	t.Helper()

	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}

	var total int64
	for _, dp := range sum.DataPoints {
		matches := true
		for _, kv := range want {
			v, ok := dp.Attributes.Value(kv.Key)
			if !ok || v.Emit() != kv.Value.Emit() {
				matches = false
				break
			}
		}
		if matches {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_RecordOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOperation(ctx, OpMeta{Op: OpGetOrCreate, Key: "k1"}, 3*time.Millisecond, nil)
	m.RecordOperation(ctx, OpMeta{Op: OpGetOrCreate, Key: "k2"}, 5*time.Millisecond, errors.New("boom"))
	m.RecordOperation(ctx, OpMeta{Op: OpRemove, Key: "k1"}, time.Millisecond, nil)

	rm := collect(t, reader)
	op := attribute.String("cache.op", OpGetOrCreate)

	if got := sumFor(t, rm, "cache.op.total", op); got != 2 {
		t.Errorf("cache.op.total{get_or_create} = %d, want 2", got)
	}
	if got := sumFor(t, rm, "cache.op.errors", op); got != 1 {
		t.Errorf("cache.op.errors{get_or_create} = %d, want 1", got)
	}
	if got := sumFor(t, rm, "cache.op.total"); got != 3 {
		t.Errorf("cache.op.total = %d, want 3", got)
	}

	hist := findMetric(rm, "cache.op.duration_ms")
	if hist == nil {
		t.Fatal("cache.op.duration_ms not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("histogram count = %d, want 3", count)
	}
}

func TestMetrics_OperationAttributesExcludeKey(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordOperation(context.Background(), OpMeta{Op: OpRemove, Key: "secret-key"}, time.Millisecond, nil)

	rm := collect(t, reader)
	sum := findMetric(rm, "cache.op.total").Data.(metricdata.Sum[int64])
	if _, ok := sum.DataPoints[0].Attributes.Value("cache.key"); ok {
		t.Error("cache.key must not be a metric attribute")
	}
}

func TestMetrics_RecordLookup(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordLookup(ctx, TierLocal, true)
	m.RecordLookup(ctx, TierLocal, false)
	m.RecordLookup(ctx, TierShared, true)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "cache.lookup.total", attribute.String("cache.tier", TierLocal)); got != 2 {
		t.Errorf("local lookups = %d, want 2", got)
	}
	if got := sumFor(t, rm, "cache.lookup.total", attribute.Bool("cache.hit", true)); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
}

func TestMetrics_RecordFactoryOutcomes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFactory(ctx, false, nil)
	m.RecordFactory(ctx, true, nil)
	m.RecordFactory(ctx, true, nil)
	m.RecordFactory(ctx, false, errors.New("fault"))

	rm := collect(t, reader)
	tests := map[string]int64{"success": 1, "failure": 2, "fault": 1}
	for outcome, want := range tests {
		if got := sumFor(t, rm, "cache.factory.total", attribute.String("cache.outcome", outcome)); got != want {
			t.Errorf("factory{%s} = %d, want %d", outcome, got, want)
		}
	}
}

func TestMetrics_RecordInvalidation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInvalidation(ctx, OpMeta{Op: OpRemoveByTag}, 3)
	m.RecordInvalidation(ctx, OpMeta{Op: OpRemoveByTag}, 0)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "cache.invalidated.keys"); got != 3 {
		t.Errorf("invalidated = %d, want 3", got)
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	const numGoroutines = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			m.RecordOperation(context.Background(), OpMeta{Op: OpGet}, time.Millisecond, nil)
		}()
	}
	wg.Wait()

	if got := sumFor(t, collect(t, reader), "cache.op.total"); got != numGoroutines {
		t.Errorf("cache.op.total = %d, want %d", got, numGoroutines)
	}
}

func TestNopMetrics_NoPanic(t *testing.T) {
	m := NopMetrics()
	ctx := context.Background()
	m.RecordOperation(ctx, OpMeta{Op: OpGet}, time.Millisecond, nil)
	m.RecordLookup(ctx, TierShared, false)
	m.RecordFactory(ctx, true, nil)
	m.RecordInvalidation(ctx, OpMeta{Op: OpRemove}, 1)
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
