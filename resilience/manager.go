package resilience

import (
	"context"
	"sync"

	"github.com/infernolabs/faultkit/health"
	"github.com/infernolabs/faultkit/observe"
)

// Manager is a named registry of resilience components and the composition
// point for wrapping operations with whichever patterns are registered
// under a name.
//
// Entries are registered once during setup and read on every call; each
// registry has its own read/write lock and entries are never mutated in
// place. Registering under an existing name replaces the prior instance.
type Manager struct {
	logger observe.Logger

	breakersMu sync.RWMutex
	breakers   map[string]*CircuitBreaker

	bulkheadsMu sync.RWMutex
	bulkheads   map[string]*Bulkhead

	retriesMu sync.RWMutex
	retries   map[string]*RetryPolicy

	monitorsMu sync.RWMutex
	monitors   map[string]*health.Monitor
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for registrations and propagated to
// circuit breakers created through the manager.
func WithLogger(logger observe.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new resilience manager. Construct one at startup
// and pass it to every caller needing resilience wrapping; it is not
// ambient global state.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		breakers:  make(map[string]*CircuitBreaker),
		bulkheads: make(map[string]*Bulkhead),
		retries:   make(map[string]*RetryPolicy),
		monitors:  make(map[string]*health.Monitor),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddCircuitBreaker registers a circuit breaker under the given name and
// returns it. The manager's logger is used for transition logs unless the
// config carries its own.
func (m *Manager) AddCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.Logger == nil {
		config.Logger = m.logger
	}
	cb := NewCircuitBreaker(name, config)

	m.breakersMu.Lock()
	m.breakers[name] = cb
	m.breakersMu.Unlock()

	m.logRegistered("circuit breaker", name)
	return cb
}

// AddBulkhead registers a bulkhead under the given name and returns it.
func (m *Manager) AddBulkhead(name string, maxConcurrent int64) *Bulkhead {
	b := NewBulkhead(name, maxConcurrent)

	m.bulkheadsMu.Lock()
	m.bulkheads[name] = b
	m.bulkheadsMu.Unlock()

	m.logRegistered("bulkhead", name)
	return b
}

// AddRetryPolicy registers a retry policy under the given name and
// returns it.
func (m *Manager) AddRetryPolicy(name string, config RetryConfig) *RetryPolicy {
	r := NewRetryPolicy(config)

	m.retriesMu.Lock()
	m.retries[name] = r
	m.retriesMu.Unlock()

	m.logRegistered("retry policy", name)
	return r
}

// AddHealthMonitor registers a health monitor under the given name and
// returns it. Monitors have their own lifecycle: start and stop them
// through the returned handle.
func (m *Manager) AddHealthMonitor(name string, config health.Config) *health.Monitor {
	if config.Logger == nil {
		config.Logger = m.logger
	}
	mon := health.NewMonitor(name, config)

	m.monitorsMu.Lock()
	m.monitors[name] = mon
	m.monitorsMu.Unlock()

	m.logRegistered("health monitor", name)
	return mon
}

// GetCircuitBreaker returns the circuit breaker registered under name.
func (m *Manager) GetCircuitBreaker(name string) (*CircuitBreaker, bool) {
	m.breakersMu.RLock()
	defer m.breakersMu.RUnlock()
	cb, ok := m.breakers[name]
	return cb, ok
}

// GetBulkhead returns the bulkhead registered under name.
func (m *Manager) GetBulkhead(name string) (*Bulkhead, bool) {
	m.bulkheadsMu.RLock()
	defer m.bulkheadsMu.RUnlock()
	b, ok := m.bulkheads[name]
	return b, ok
}

// GetRetryPolicy returns the retry policy registered under name.
func (m *Manager) GetRetryPolicy(name string) (*RetryPolicy, bool) {
	m.retriesMu.RLock()
	defer m.retriesMu.RUnlock()
	r, ok := m.retries[name]
	return r, ok
}

// GetHealthMonitor returns the health monitor registered under name.
func (m *Manager) GetHealthMonitor(name string) (*health.Monitor, bool) {
	m.monitorsMu.RLock()
	defer m.monitorsMu.RUnlock()
	mon, ok := m.monitors[name]
	return mon, ok
}

// Execute runs the operation wrapped in whichever of {retry policy,
// circuit breaker, bulkhead} are registered under name.
//
// The chain is built by folding the operation through the present
// wrappers in a fixed nesting order, outermost first:
//
//	retry ⊃ circuit breaker ⊃ bulkhead ⊃ op
//
// Each retry attempt re-evaluates the circuit breaker, so an open circuit
// short-circuits subsequent attempts cheaply, and every admitted call is
// additionally bulkhead-gated. Absent components are skipped; with none
// registered the operation runs directly.
func (m *Manager) Execute(ctx context.Context, name string, op func(context.Context) error) error {
	execute := op

	if b, ok := m.GetBulkhead(name); ok {
		inner := execute
		execute = func(ctx context.Context) error {
			return b.Execute(ctx, inner)
		}
	}

	if cb, ok := m.GetCircuitBreaker(name); ok {
		inner := execute
		execute = func(ctx context.Context) error {
			return cb.Call(ctx, inner)
		}
	}

	if r, ok := m.GetRetryPolicy(name); ok {
		inner := execute
		execute = func(ctx context.Context) error {
			return r.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

// ExecuteResult runs a value-returning operation with the resilience
// patterns registered under name.
func ExecuteResult[T any](ctx context.Context, m *Manager, name string, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := m.Execute(ctx, name, func(ctx context.Context) error {
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

// SystemHealth returns the current status of every registered health
// monitor, keyed by name.
func (m *Manager) SystemHealth() map[string]health.Status {
	m.monitorsMu.RLock()
	defer m.monitorsMu.RUnlock()

	statuses := make(map[string]health.Status, len(m.monitors))
	for name, mon := range m.monitors {
		statuses[name] = mon.Status()
	}
	return statuses
}

// ResilienceMetrics returns a JSON-shaped snapshot of every registered
// circuit breaker and bulkhead, suitable for periodic export.
func (m *Manager) ResilienceMetrics() map[string]map[string]any {
	metrics := make(map[string]map[string]any)

	m.breakersMu.RLock()
	for name, cb := range m.breakers {
		snap := cb.Metrics()
		metrics["circuit_breaker_"+name] = map[string]any{
			"state":               snap.State.String(),
			"total_requests":      snap.TotalRequests,
			"successful_requests": snap.SuccessfulRequests,
			"failed_requests":     snap.FailedRequests,
			"rejected_requests":   snap.RejectedRequests,
			"state_changes":       snap.StateChanges,
		}
	}
	m.breakersMu.RUnlock()

	m.bulkheadsMu.RLock()
	for name, b := range m.bulkheads {
		metrics["bulkhead_"+name] = map[string]any{
			"active_requests":   b.ActiveRequests(),
			"total_requests":    b.TotalRequests(),
			"rejected_requests": b.RejectedRequests(),
			"max_concurrent":    b.MaxConcurrent(),
		}
	}
	m.bulkheadsMu.RUnlock()

	return metrics
}

func (m *Manager) logRegistered(kind, name string) {
	if m.logger != nil {
		m.logger.Info(context.Background(), "registered "+kind,
			observe.Field{Key: "name", Value: name})
	}
}
