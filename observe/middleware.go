package observe

import (
	"context"
	"time"
)

// Operation is the signature of a wrapped downstream call.
type Operation func(ctx context.Context) error

// Middleware wraps resilience-protected calls with observability
// (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe Operation.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped operation are recorded and
//     propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability
// components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an operation with tracing, metrics, and logging scoped to
// the given component.
func (m *Middleware) Wrap(meta ComponentMeta, op Operation) Operation {
	return func(ctx context.Context) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		err := op(ctx)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		logger := m.logger.WithComponent(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "protected call failed", fields...)
		} else {
			logger.Debug(ctx, "protected call completed", fields...)
		}

		return err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
