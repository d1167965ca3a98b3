package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdownTimeout indicates in-flight work did not drain in time.
var ErrShutdownTimeout = errors.New("resilience: shutdown timed out")

// ErrShuttingDown indicates new work was refused because shutdown is in
// progress.
var ErrShuttingDown = errors.New("resilience: coordinator is shutting down")

// ShutdownCoordinator tracks in-flight work and coordinates a graceful
// drain: once shutdown begins, new work is refused and Shutdown blocks
// until the in-flight count reaches zero or the context expires.
type ShutdownCoordinator struct {
	inFlight     atomic.Int64
	shuttingDown atomic.Bool

	mu   sync.Mutex
	done chan struct{}
}

// NewShutdownCoordinator creates a new shutdown coordinator.
func NewShutdownCoordinator() *ShutdownCoordinator {
	return &ShutdownCoordinator{
		done: make(chan struct{}),
	}
}

// Begin marks one unit of work as started. It returns false if shutdown
// is in progress, in which case the work must not run and End must not
// be called.
func (s *ShutdownCoordinator) Begin() bool {
	if s.shuttingDown.Load() {
		return false
	}
	s.inFlight.Add(1)
	// Shutdown may have started between the check and the increment.
	// Back out so the unit cannot slip past a drain that already
	// observed a zero in-flight count.
	if s.shuttingDown.Load() {
		if s.inFlight.Add(-1) == 0 {
			s.signalDone()
		}
		return false
	}
	return true
}

// End marks one unit of work as finished.
func (s *ShutdownCoordinator) End() {
	if s.inFlight.Add(-1) == 0 && s.shuttingDown.Load() {
		s.signalDone()
	}
}

// Execute runs op bracketed by Begin/End. It returns ErrShuttingDown
// without running op if shutdown is in progress.
func (s *ShutdownCoordinator) Execute(ctx context.Context, op func(context.Context) error) error {
	if !s.Begin() {
		return ErrShuttingDown
	}
	defer s.End()
	return op(ctx)
}

// Shutdown initiates the drain and waits for in-flight work to finish.
// Returns the context's error if the deadline passes first.
func (s *ShutdownCoordinator) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)

	if s.inFlight.Load() == 0 {
		s.signalDone()
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownWithTimeout initiates the drain with a deadline, returning
// ErrShutdownTimeout if in-flight work does not finish in time.
// Default helper deadline: 30 seconds when d is zero.
func (s *ShutdownCoordinator) ShutdownWithTimeout(d time.Duration) error {
	if d <= 0 {
		d = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrShutdownTimeout
		}
		return err
	}
	return nil
}

// IsShuttingDown reports whether shutdown has been initiated.
func (s *ShutdownCoordinator) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// InFlight returns the number of in-flight units of work.
func (s *ShutdownCoordinator) InFlight() int64 {
	return s.inFlight.Load()
}

// Done returns a channel closed when the drain completes.
func (s *ShutdownCoordinator) Done() <-chan struct{} {
	return s.done
}

func (s *ShutdownCoordinator) signalDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
