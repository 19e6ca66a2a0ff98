package memo

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zygi/miniperscache/observe"
	"github.com/zygi/miniperscache/storage"
)

func newTestInstrumentation(t *testing.T) (*observe.Instrumentation, *tracetest.SpanRecorder, *sdkmetric.ManualReader, *bytes.Buffer) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp.Meter("memo-test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	var logs bytes.Buffer
	inst := observe.NewInstrumentation(observe.NewTracer(tp.Tracer("memo-test")), metrics, observe.NewLoggerWithWriter("debug", &logs))
	return inst, spans, reader, &logs
}

func intAttr(s sdktrace.ReadOnlySpan, key string) int64 {
	for _, a := range s.Attributes() {
		if string(a.Key) == key {
			return a.Value.AsInt64()
		}
	}
	return -1
}

func sumCounter(t *testing.T, reader *sdkmetric.ManualReader, name string, filter attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(filter.Key); ok && v == filter.Value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestCached_Instrumentation(t *testing.T) {
	inst, spans, reader, logs := newTestInstrumentation(t)
	ctx := context.Background()

	f, err := New("square", squareFunc(&counter{}), xSig, testOpts(t, storage.NewMemory(), WithInstrumentation(inst))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, _ = f.Call(ctx, Call(3))
	_, _ = f.Call(ctx, Call(3))

	ended := spans.Ended()
	if len(ended) != 2 {
		t.Fatalf("spans = %d, want 2", len(ended))
	}
	for i, want := range []struct{ hits, misses int64 }{{0, 1}, {1, 0}} {
		s := ended[i]
		if s.Name() != "memo.call.square" {
			t.Errorf("span name = %q", s.Name())
		}
		if intAttr(s, "memo.hits") != want.hits || intAttr(s, "memo.misses") != want.misses {
			t.Errorf("span %d hits=%d misses=%d, want %d/%d", i, intAttr(s, "memo.hits"), intAttr(s, "memo.misses"), want.hits, want.misses)
		}
	}

	if got := sumCounter(t, reader, "memo.lookups", attribute.Bool("memo.hit", true)); got != 1 {
		t.Errorf("hit lookups = %d, want 1", got)
	}
	if !strings.Contains(logs.String(), `"cache hit"`) {
		t.Errorf("expected a cache hit log line, got %s", logs)
	}
}

func TestBatch_InstrumentationRecordsItems(t *testing.T) {
	inst, spans, _, _ := newTestInstrumentation(t)
	ctx := context.Background()

	f, err := NewBatch("double", doubleBatch(&counter{}), xsSig, testOpts(t, storage.NewMemory(), WithInstrumentation(inst))...)
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}
	_, _ = f.Call(ctx, Call([]int{1, 2}))
	_, _ = f.Call(ctx, Call([]int{1, 3}))
	_, _ = f.Call(ctx, Call(7))

	ended := spans.Ended()
	if len(ended) != 3 {
		t.Fatalf("spans = %d, want 3", len(ended))
	}
	if intAttr(ended[1], "memo.hits") != 1 || intAttr(ended[1], "memo.misses") != 1 {
		t.Errorf("second span hits=%d misses=%d, want 1/1", intAttr(ended[1], "memo.hits"), intAttr(ended[1], "memo.misses"))
	}
	if ended[2].Status().Code != codes.Error {
		t.Errorf("failed call status = %v, want Error", ended[2].Status())
	}
}
