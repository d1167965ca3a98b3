// Package resilience provides fault-tolerance patterns for calls to
// unreliable dependencies.
//
// The patterns can be used independently or composed through a Manager
// into protected execution pipelines.
//
// # Patterns
//
// The package provides the following resilience patterns:
//
//   - Circuit Breaker: Stops requests to a failing dependency after a
//     failure threshold is reached, then probes for recovery after a
//     cooling-off period.
//
//   - Retry: Automatically retries failed operations with exponential
//     backoff and optional jitter.
//
//   - Bulkhead: Caps concurrent operations to prevent resource
//     exhaustion, rejecting overflow immediately.
//
//   - Timeout: Bounds how long a single call may run.
//
// # Usage
//
// Each pattern can be used on its own:
//
//	cb := resilience.NewCircuitBreaker("payments", resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  time.Minute,
//	})
//
//	err := cb.Call(ctx, func(ctx context.Context) error {
//	    return chargeCard(ctx)
//	})
//
// Or registered under one name on a Manager, which layers every
// component registered under that name around the call:
//
//	m := resilience.NewManager()
//	m.AddCircuitBreaker("payments", resilience.CircuitBreakerConfig{})
//	m.AddBulkhead("payments", 20)
//	m.AddRetryPolicy("payments", resilience.DefaultRetryConfig())
//
//	err := m.Execute(ctx, "payments", func(ctx context.Context) error {
//	    return chargeCard(ctx)
//	})
package resilience
