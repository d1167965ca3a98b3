package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for resilience-wrapped calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a call through a resilience component with
	// duration and error status.
	RecordCall(ctx context.Context, meta ComponentMeta, duration time.Duration, err error)

	// RecordStateChange records a circuit breaker or health monitor
	// state transition.
	RecordStateChange(ctx context.Context, meta ComponentMeta, from, to string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	stateChanges metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"resilience.calls",
		metric.WithDescription("Total number of resilience-wrapped calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"resilience.call.errors",
		metric.WithDescription("Total number of failed resilience-wrapped calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"resilience.call.duration_ms",
		metric.WithDescription("Resilience-wrapped call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stateChanges, err := meter.Int64Counter(
		"resilience.state.changes",
		metric.WithDescription("Total number of component state transitions"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		stateChanges: stateChanges,
	}, nil
}

// RecordCall records metrics for a call through a resilience component.
func (m *metricsImpl) RecordCall(ctx context.Context, meta ComponentMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("resilience.component", meta.ComponentID()),
		attribute.String("resilience.name", meta.Name),
	}
	if meta.Kind != "" {
		attrs = append(attrs, attribute.String("resilience.kind", meta.Kind))
	}

	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordStateChange records a component state transition.
func (m *metricsImpl) RecordStateChange(ctx context.Context, meta ComponentMeta, from, to string) {
	m.stateChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resilience.component", meta.ComponentID()),
		attribute.String("state.from", from),
		attribute.String("state.to", to),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCall(ctx context.Context, meta ComponentMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordStateChange(ctx context.Context, meta ComponentMeta, from, to string) {
}
