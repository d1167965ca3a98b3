package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ComponentMeta identifies a resilience component for telemetry purposes.
type ComponentMeta struct {
	Kind string // Component kind: circuit_breaker, bulkhead, retry, health_monitor
	Name string // Component name (required)
}

// SpanName returns the deterministic span name for this component.
// Format: resilience.call.<kind>.<name> or resilience.call.<name>
func (m ComponentMeta) SpanName() string {
	if m.Kind != "" {
		return "resilience.call." + m.Kind + "." + m.Name
	}
	return "resilience.call." + m.Name
}

// ComponentID returns the fully qualified component identifier.
func (m ComponentMeta) ComponentID() string {
	if m.Kind != "" {
		return m.Kind + "." + m.Name
	}
	return m.Name
}

// Tracer wraps OpenTelemetry tracing with component-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a resilience-wrapped call.
	StartSpan(ctx context.Context, meta ComponentMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with component metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta ComponentMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("resilience.component", meta.ComponentID()),
		attribute.String("resilience.name", meta.Name),
		attribute.Bool("resilience.error", false), // Updated in EndSpan if error
	}
	if meta.Kind != "" {
		attrs = append(attrs, attribute.String("resilience.kind", meta.Kind))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("resilience.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta ComponentMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
