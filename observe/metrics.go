package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stages reported on the memo.errors counter.
const (
	StageHash        = "hash"
	StageLookup      = "lookup"
	StageDeserialize = "deserialize"
	StageCompute     = "compute"
	StageSerialize   = "serialize"
	StageStore       = "store"
)

// Metrics records cache and computation metrics for memoized functions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one storage lookup and whether it hit.
	RecordLookup(ctx context.Context, meta FuncMeta, hit bool)

	// RecordComputation records one invocation of the wrapped function.
	// items is the number of values it was asked to produce.
	RecordComputation(ctx context.Context, meta FuncMeta, items int, duration time.Duration, err error)

	// RecordStore records one write to storage.
	RecordStore(ctx context.Context, meta FuncMeta, err error)

	// RecordError records a failure at the named stage.
	RecordError(ctx context.Context, meta FuncMeta, stage string)
}

type metricsImpl struct {
	lookups      metric.Int64Counter
	computations metric.Int64Counter
	stores       metric.Int64Counter
	errors       metric.Int64Counter
	durationHist metric.Float64Histogram
	batchSize    metric.Int64Histogram
}

// NewMetrics creates the memo instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	lookups, err := meter.Int64Counter(
		"memo.lookups",
		metric.WithDescription("Storage lookups by memoized functions"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	computations, err := meter.Int64Counter(
		"memo.computations",
		metric.WithDescription("Invocations of wrapped functions after a cache miss"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	stores, err := meter.Int64Counter(
		"memo.stores",
		metric.WithDescription("Results written to storage"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	errCount, err := meter.Int64Counter(
		"memo.errors",
		metric.WithDescription("Failures by stage"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"memo.compute.duration_ms",
		metric.WithDescription("Wrapped function duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	batchSize, err := meter.Int64Histogram(
		"memo.batch.size",
		metric.WithDescription("Items passed to the wrapped function per invocation"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:      lookups,
		computations: computations,
		stores:       stores,
		errors:       errCount,
		durationHist: durationHist,
		batchSize:    batchSize,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta FuncMeta, hit bool) {
	attrs := append(meta.attributes(), attribute.Bool("memo.hit", hit))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordComputation(ctx context.Context, meta FuncMeta, items int, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)
	m.computations.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
	if meta.Kind == KindBatch {
		m.batchSize.Record(ctx, int64(items), opt)
	}
	if err != nil {
		m.RecordError(ctx, meta, StageCompute)
	}
}

func (m *metricsImpl) RecordStore(ctx context.Context, meta FuncMeta, err error) {
	opt := metric.WithAttributes(meta.attributes()...)
	m.stores.Add(ctx, 1, opt)
	if err != nil {
		m.RecordError(ctx, meta, StageStore)
	}
}

func (m *metricsImpl) RecordError(ctx context.Context, meta FuncMeta, stage string) {
	attrs := append(meta.attributes(), attribute.String("memo.stage", stage))
	m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

type noopMetrics struct{}

func (noopMetrics) RecordLookup(context.Context, FuncMeta, bool)                           {}
func (noopMetrics) RecordComputation(context.Context, FuncMeta, int, time.Duration, error) {}
func (noopMetrics) RecordStore(context.Context, FuncMeta, error)                           {}
func (noopMetrics) RecordError(context.Context, FuncMeta, string)                          {}
