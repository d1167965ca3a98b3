package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/infernolabs/faultkit/observe"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening
	// the circuit. Default: 5
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before a trial
	// call is admitted. Default: 60 seconds
	RecoveryTimeout time.Duration

	// SuccessThreshold is the number of successes required in half-open
	// state to close the circuit. Default: 3
	SuccessThreshold int

	// CallTimeout is the per-call deadline. Exceeding it counts as a
	// failure and surfaces ErrCallTimeout. Default: 30 seconds
	CallTimeout time.Duration

	// MaxConcurrent is the maximum number of in-flight calls admitted
	// through the breaker. Default: 100
	MaxConcurrent int64

	// OnStateChange is called after each actual state transition.
	OnStateChange func(name string, from, to State)

	// Logger receives transition logs. Nil disables logging.
	Logger observe.Logger
}

// CircuitBreaker guards a call path with a three-state machine.
//
// The state enum sits behind a read/write lock; all counters are
// independent atomics. Transitions are idempotent, so two callers racing
// to cross a threshold produce a single state change.
//
// Half-open admission: no extra cap is placed on trial calls beyond the
// shared MaxConcurrent bound. Concurrent trials are allowed and the first
// SuccessThreshold successes close the circuit.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	sem    *semaphore.Weighted

	mu          sync.RWMutex
	state       State
	lastFailure time.Time

	// Consecutive counters. Incrementing one resets the other.
	failures  atomic.Uint64
	successes atomic.Uint64

	total        atomic.Uint64
	successful   atomic.Uint64
	failed       atomic.Uint64
	rejected     atomic.Uint64
	stateChanges atomic.Uint64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 30 * time.Second
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 100
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		sem:    semaphore.NewWeighted(config.MaxConcurrent),
		state:  StateClosed,
	}
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Call runs the operation through the circuit breaker.
//
// An open circuit rejects with ErrCircuitOpen without invoking op. An
// admitted call holds one of MaxConcurrent slots and runs under
// CallTimeout; exceeding the deadline returns ErrCallTimeout and counts
// as a failure. Application errors pass through unchanged.
func (cb *CircuitBreaker) Call(ctx context.Context, op func(context.Context) error) error {
	cb.total.Add(1)

	if !cb.allowRequest(ctx) {
		cb.rejected.Add(1)
		return ErrCircuitOpen
	}

	if err := cb.sem.Acquire(ctx, 1); err != nil {
		// Caller cancelled while waiting for admission.
		return err
	}
	defer cb.sem.Release(1)

	err := runWithDeadline(ctx, cb.config.CallTimeout, op)
	if err != nil {
		cb.failed.Add(1)
		cb.onFailure(ctx)
		return err
	}

	cb.successful.Add(1)
	cb.onSuccess(ctx)
	return nil
}

// CallResult runs a value-returning operation through the circuit breaker.
func CallResult[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Call(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// allowRequest decides admission at call entry. In the open state an
// elapsed recovery timeout moves the breaker to half-open and admits the
// call as a trial.
func (cb *CircuitBreaker) allowRequest(ctx context.Context) bool {
	cb.mu.RLock()
	state := cb.state
	lastFailure := cb.lastFailure
	cb.mu.RUnlock()

	switch state {
	case StateOpen:
		if time.Since(lastFailure) > cb.config.RecoveryTimeout {
			cb.transition(ctx, StateHalfOpen)
			return true
		}
		return false
	default:
		// Closed and half-open both admit; only the semaphore applies
		// backpressure here.
		return true
	}
}

func (cb *CircuitBreaker) onSuccess(ctx context.Context) {
	cb.mu.RLock()
	state := cb.state
	cb.mu.RUnlock()

	switch state {
	case StateHalfOpen:
		if cb.successes.Add(1) >= uint64(cb.config.SuccessThreshold) {
			cb.transition(ctx, StateClosed)
		}
	case StateClosed:
		cb.failures.Store(0)
	}
}

func (cb *CircuitBreaker) onFailure(ctx context.Context) {
	count := cb.failures.Add(1)
	cb.successes.Store(0)

	cb.mu.Lock()
	cb.lastFailure = time.Now()
	state := cb.state
	cb.mu.Unlock()

	switch state {
	case StateClosed:
		if count >= uint64(cb.config.FailureThreshold) {
			cb.transition(ctx, StateOpen)
		}
	case StateHalfOpen:
		// A single failure during trial aborts recovery.
		cb.transition(ctx, StateOpen)
	}
}

// transition moves the breaker to the target state. Transitioning to the
// state already held is a no-op and does not count as a state change.
func (cb *CircuitBreaker) transition(ctx context.Context, to State) {
	cb.mu.Lock()
	if cb.state == to {
		cb.mu.Unlock()
		return
	}
	from := cb.state
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures.Store(0)
		cb.successes.Store(0)
	case StateHalfOpen:
		cb.successes.Store(0)
	}
	cb.mu.Unlock()

	cb.stateChanges.Add(1)

	if cb.config.Logger != nil {
		fields := []observe.Field{
			{Key: "circuit_breaker", Value: cb.name},
			{Key: "from", Value: from.String()},
			{Key: "to", Value: to.String()},
		}
		if to == StateOpen {
			cb.config.Logger.Warn(ctx, "circuit breaker opened", fields...)
		} else {
			cb.config.Logger.Info(ctx, "circuit breaker state changed", fields...)
		}
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, to)
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	return CircuitBreakerMetrics{
		State:               cb.State(),
		TotalRequests:       cb.total.Load(),
		SuccessfulRequests:  cb.successful.Load(),
		FailedRequests:      cb.failed.Load(),
		RejectedRequests:    cb.rejected.Load(),
		StateChanges:        cb.stateChanges.Load(),
		ConsecutiveFailures: cb.failures.Load(),
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State               State
	TotalRequests       uint64
	SuccessfulRequests  uint64
	FailedRequests      uint64
	RejectedRequests    uint64
	StateChanges        uint64
	ConsecutiveFailures uint64
}
