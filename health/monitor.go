package health

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/infernolabs/faultkit/observe"
)

// Config configures a health monitor.
type Config struct {
	// Enabled controls whether Start launches the background loop.
	// Start on a disabled monitor returns nil without doing anything.
	Enabled bool

	// CheckInterval is the tick interval between probes.
	// Default: 30 seconds
	CheckInterval time.Duration

	// Timeout is the per-probe deadline.
	// Default: 5 seconds
	Timeout time.Duration

	// FailureThreshold is the number of consecutive unhealthy probes
	// before the status flips to unhealthy. Default: 3
	FailureThreshold int

	// SuccessThreshold is the number of consecutive healthy probes
	// before the status flips to healthy. Default: 1
	SuccessThreshold int

	// Logger receives status-change logs. Nil disables logging.
	Logger observe.Logger
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		CheckInterval:    30 * time.Second,
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		SuccessThreshold: 1,
	}
}

// ProbeFunc is a caller-supplied health probe. A returned error, or a
// probe exceeding the configured timeout, is normalized to an unhealthy
// result; the monitor never propagates probe errors to its callers.
type ProbeFunc func(ctx context.Context) (Result, error)

// ProbeChecker adapts a Checker into a ProbeFunc.
func ProbeChecker(c Checker) ProbeFunc {
	return func(ctx context.Context) (Result, error) {
		return c.Check(ctx), nil
	}
}

// monitorState is the state shared with the background loop. The loop
// holds this struct rather than the Monitor so that an unreferenced
// Monitor can be collected and its cleanup can stop the loop.
type monitorState struct {
	mu        sync.RWMutex
	status    Status
	lastCheck *Result

	// Consecutive counters. Incrementing one resets the other.
	failures  atomic.Uint32
	successes atomic.Uint32
}

// Monitor periodically probes a dependency in the background and applies
// consecutive-success/failure hysteresis to the reported status.
//
// The status starts Unknown and changes only when a threshold of
// consecutive same-direction probes is crossed, so a single flapping
// probe never flips it.
type Monitor struct {
	name   string
	config Config
	state  *monitorState

	mu      sync.Mutex
	started bool
	stopFn  func()
}

// NewMonitor creates a new health monitor.
func NewMonitor(name string, config Config) *Monitor {
	// Apply defaults
	if config.CheckInterval <= 0 {
		config.CheckInterval = 30 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}

	return &Monitor{
		name:   name,
		config: config,
		state:  &monitorState{status: StatusUnknown},
	}
}

// Name returns the monitor's name.
func (m *Monitor) Name() string {
	return m.name
}

// Start launches the background probe loop. The first probe runs right
// away; subsequent probes run every CheckInterval. It returns
// ErrAlreadyStarted if the loop is already running, and nil without
// starting anything if the monitor is disabled.
//
// The loop runs until Stop is called. A monitor dropped without Stop has
// a runtime cleanup that signals the loop, so it cannot leak; the loop
// observes the signal within one tick.
func (m *Monitor) Start(probe ProbeFunc) error {
	if !m.config.Enabled {
		if m.config.Logger != nil {
			m.config.Logger.Info(context.Background(), "health monitoring disabled",
				observe.Field{Key: "monitor", Value: m.name})
		}
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	stop := make(chan struct{})
	var once sync.Once
	stopFn := func() {
		once.Do(func() { close(stop) })
	}
	m.stopFn = stopFn

	go runLoop(m.name, m.config, m.state, probe, stop)

	// Safety net: stop the loop if the monitor is dropped without Stop.
	runtime.AddCleanup(m, func(fn func()) { fn() }, stopFn)

	if m.config.Logger != nil {
		m.config.Logger.Info(context.Background(), "health monitoring started",
			observe.Field{Key: "monitor", Value: m.name})
	}
	return nil
}

// Stop signals the background loop to exit. It is idempotent and safe to
// call on a monitor that was never started. The loop observes the signal
// within one tick interval.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
		m.started = false
	}
}

// Status returns the current hysteresis-filtered status.
func (m *Monitor) Status() Status {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	return m.state.status
}

// LastCheck returns the most recent probe result, if any. The result is
// recorded whether or not it crossed a threshold.
func (m *Monitor) LastCheck() (Result, bool) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	if m.state.lastCheck == nil {
		return Result{}, false
	}
	return *m.state.lastCheck, true
}

// IsHealthy reports whether the current status is healthy.
func (m *Monitor) IsHealthy() bool {
	return m.Status() == StatusHealthy
}

func runLoop(name string, config Config, state *monitorState, probe ProbeFunc, stop <-chan struct{}) {
	// The first probe runs immediately so a dependency's status is known
	// at startup rather than after a full interval.
	state.apply(name, config, runProbe(config, probe))

	ticker := time.NewTicker(config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			if config.Logger != nil {
				config.Logger.Info(context.Background(), "health monitor stopped",
					observe.Field{Key: "monitor", Value: name})
			}
			return
		case <-ticker.C:
			result := runProbe(config, probe)
			state.apply(name, config, result)
		}
	}
}

// runProbe invokes the probe under the configured deadline and normalizes
// errors and timeouts to unhealthy results.
func runProbe(config Config, probe ProbeFunc) Result {
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	start := time.Now()

	type outcome struct {
		result Result
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		result, err := probe(ctx)
		ch <- outcome{result, err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			result := Unhealthy("health check failed: "+out.err.Error(), out.err)
			result.Duration = time.Since(start)
			return result
		}
		result := out.result
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		return result
	case <-ctx.Done():
		result := Unhealthy("health check timed out", ErrProbeTimeout)
		result.Duration = time.Since(start)
		return result
	}
}

// apply routes a probe result through the hysteresis counters and records
// it as the last check. Unknown results affect neither counters nor
// status.
func (st *monitorState) apply(name string, config Config, result Result) {
	switch result.Status {
	case StatusHealthy:
		successes := st.successes.Add(1)
		st.failures.Store(0)
		if int(successes) >= config.SuccessThreshold {
			st.setStatus(name, config, StatusHealthy, result.Message)
		}
	case StatusUnhealthy:
		failures := st.failures.Add(1)
		st.successes.Store(0)
		if int(failures) >= config.FailureThreshold {
			st.setStatus(name, config, StatusUnhealthy, result.Message)
		}
	case StatusUnknown:
	}

	st.mu.Lock()
	st.lastCheck = &result
	st.mu.Unlock()
}

// setStatus updates the reported status, logging only on actual change.
func (st *monitorState) setStatus(name string, config Config, to Status, message string) {
	st.mu.Lock()
	changed := st.status != to
	st.status = to
	st.mu.Unlock()

	if !changed || config.Logger == nil {
		return
	}

	fields := []observe.Field{
		{Key: "monitor", Value: name},
		{Key: "status", Value: to.String()},
	}
	if to == StatusUnhealthy {
		if message == "" {
			message = "unknown reason"
		}
		fields = append(fields, observe.Field{Key: "reason", Value: message})
		config.Logger.Warn(context.Background(), "service is now unhealthy", fields...)
	} else {
		config.Logger.Info(context.Background(), "service is now healthy", fields...)
	}
}
