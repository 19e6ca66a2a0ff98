package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Wrapper kinds reported in FuncMeta.Kind.
const (
	KindSingle = "single"
	KindBatch  = "batch"
)

// FuncMeta describes a memoized function for telemetry purposes.
type FuncMeta struct {
	Tag   string // Storage tag of the wrapper (required)
	Kind  string // KindSingle or KindBatch
	Async bool   // Whether the wrapper is the suspend-capable variant
}

// SpanName returns the deterministic span name for this function.
// Format: memo.call.<tag>
func (m FuncMeta) SpanName() string {
	return "memo.call." + m.Tag
}

// Validate reports missing required metadata.
func (m FuncMeta) Validate() error {
	if m.Tag == "" {
		return ErrMissingTag
	}
	return nil
}

func (m FuncMeta) kind() string {
	if m.Kind == "" {
		return KindSingle
	}
	return m.Kind
}

func (m FuncMeta) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("memo.tag", m.Tag),
		attribute.String("memo.kind", m.kind()),
		attribute.Bool("memo.async", m.Async),
	}
}

// Outcome summarizes the cache behaviour of one wrapper call.
type Outcome struct {
	Hits   int
	Misses int
}

// Tracer wraps OpenTelemetry tracing with per-call span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for one wrapper call.
	StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span)

	// EndSpan records the outcome and any error, then ends the span.
	EndSpan(span trace.Span, outcome Outcome, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return newNoopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("memo.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, outcome Outcome, err error) {
	span.SetAttributes(
		attribute.Int("memo.hits", outcome.Hits),
		attribute.Int("memo.misses", outcome.Misses),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("memo.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta FuncMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, outcome Outcome, err error) {
	span.End()
}
