package observe

import (
	"context"
	"encoding/hex"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Instrumentation bundles the tracer, metrics and logger used by memoized
// wrappers. A nil *Instrumentation is valid and records nothing.
//
// Contract:
//   - Concurrency: safe for concurrent use; each call gets its own Scope.
//   - Errors: telemetry is best-effort and never changes call results.
type Instrumentation struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumentation creates an Instrumentation. Nil components are
// replaced with no-ops.
func NewInstrumentation(tracer Tracer, metrics Metrics, logger Logger) *Instrumentation {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Instrumentation{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// InstrumentationFromObserver creates an Instrumentation from an Observer.
func InstrumentationFromObserver(obs Observer) (*Instrumentation, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewInstrumentation(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Start opens a span for one wrapper call and returns the Scope that
// records its progress. Callers must call Scope.End exactly once.
func (i *Instrumentation) Start(ctx context.Context, meta FuncMeta) (context.Context, *Scope) {
	if i == nil {
		return ctx, nil
	}
	ctx, span := i.tracer.StartSpan(ctx, meta)
	return ctx, &Scope{
		inst:   i,
		meta:   meta,
		span:   span,
		logger: i.logger.WithFunction(meta),
		start:  time.Now(),
	}
}

// Scope records the telemetry of a single wrapper call. A nil *Scope is
// valid and records nothing. Hit, Miss and Stored may be called from
// multiple goroutines.
type Scope struct {
	inst   *Instrumentation
	meta   FuncMeta
	span   trace.Span
	logger Logger
	start  time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Hit records a lookup that found a stored value.
func (s *Scope) Hit(ctx context.Context, digest []byte) {
	if s == nil {
		return
	}
	s.hits.Add(1)
	s.inst.metrics.RecordLookup(ctx, s.meta, true)
	s.logger.Debug(ctx, "cache hit", Field{Key: "memo.digest", Value: hex.EncodeToString(digest)})
}

// Miss records a lookup that found nothing.
func (s *Scope) Miss(ctx context.Context, digest []byte) {
	if s == nil {
		return
	}
	s.misses.Add(1)
	s.inst.metrics.RecordLookup(ctx, s.meta, false)
	s.logger.Debug(ctx, "cache miss", Field{Key: "memo.digest", Value: hex.EncodeToString(digest)})
}

// Computed records one invocation of the wrapped function.
func (s *Scope) Computed(ctx context.Context, items int, duration time.Duration, err error) {
	if s == nil {
		return
	}
	s.inst.metrics.RecordComputation(ctx, s.meta, items, duration, err)
	fields := []Field{
		{Key: "items", Value: items},
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		s.logger.Warn(ctx, "computation failed", fields...)
		return
	}
	s.logger.Debug(ctx, "computation completed", fields...)
}

// Stored records one write to storage.
func (s *Scope) Stored(ctx context.Context, digest []byte, err error) {
	if s == nil {
		return
	}
	s.inst.metrics.RecordStore(ctx, s.meta, err)
	if err != nil {
		s.logger.Error(ctx, "store failed",
			Field{Key: "memo.digest", Value: hex.EncodeToString(digest)},
			Field{Key: "error", Value: err.Error()},
		)
	}
}

// Failed records a failure at stage other than computation or storage.
func (s *Scope) Failed(ctx context.Context, stage string, err error) {
	if s == nil || err == nil {
		return
	}
	s.inst.metrics.RecordError(ctx, s.meta, stage)
	s.logger.Warn(ctx, "memoized call failed",
		Field{Key: "memo.stage", Value: stage},
		Field{Key: "error", Value: err.Error()},
	)
}

// Outcome returns the hits and misses recorded so far.
func (s *Scope) Outcome() Outcome {
	if s == nil {
		return Outcome{}
	}
	return Outcome{Hits: int(s.hits.Load()), Misses: int(s.misses.Load())}
}

// End closes the span with the final error.
func (s *Scope) End(ctx context.Context, err error) {
	if s == nil {
		return
	}
	outcome := s.Outcome()
	s.inst.tracer.EndSpan(s.span, outcome, err)
	s.logger.Debug(ctx, "memoized call completed",
		Field{Key: "memo.hits", Value: outcome.Hits},
		Field{Key: "memo.misses", Value: outcome.Misses},
		Field{Key: "duration_ms", Value: float64(time.Since(s.start).Milliseconds())},
	)
}
