package observe

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestComponentMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta ComponentMeta
		want string
	}{
		{ComponentMeta{Kind: "circuit_breaker", Name: "payments"}, "resilience.call.circuit_breaker.payments"},
		{ComponentMeta{Name: "payments"}, "resilience.call.payments"},
	}

	for _, tt := range tests {
		if got := tt.meta.SpanName(); got != tt.want {
			t.Errorf("SpanName() = %q, want %q", got, tt.want)
		}
	}
}

func TestComponentMeta_ComponentID(t *testing.T) {
	meta := ComponentMeta{Kind: "bulkhead", Name: "worker"}
	if got := meta.ComponentID(); got != "bulkhead.worker" {
		t.Errorf("ComponentID() = %q, want bulkhead.worker", got)
	}

	meta = ComponentMeta{Name: "worker"}
	if got := meta.ComponentID(); got != "worker" {
		t.Errorf("ComponentID() = %q, want worker", got)
	}
}

func TestTracer_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := newTracer(tp.Tracer("test"))

	meta := ComponentMeta{Kind: "circuit_breaker", Name: "payments"}
	_, span := tracer.StartSpan(context.Background(), meta)
	tracer.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "resilience.call.circuit_breaker.payments" {
		t.Errorf("span name = %q", spans[0].Name())
	}
}

func TestTracer_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := newTracer(tp.Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), ComponentMeta{Name: "payments"})
	tracer.EndSpan(span, errors.New("downstream failure"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status().Description != "downstream failure" {
		t.Errorf("status description = %q", spans[0].Status().Description)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("error should be recorded as a span event")
	}
}

func TestNoopTracer(t *testing.T) {
	tracer := newNoopTracer()

	ctx, span := tracer.StartSpan(context.Background(), ComponentMeta{Name: "x"})
	if ctx == nil || span == nil {
		t.Fatal("noop tracer must return usable context and span")
	}
	tracer.EndSpan(span, errors.New("ignored"))
}
