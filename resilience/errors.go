package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when a circuit breaker rejects a call
	// without attempting it.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrCallTimeout is returned when a call exceeds its per-call deadline.
	ErrCallTimeout = errors.New("resilience: operation timed out")

	// ErrBulkheadFull is returned when a bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")
)
