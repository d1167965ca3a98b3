package resilience

import (
	"context"
	"time"
)

// runWithDeadline races op against the given deadline. The operation runs
// in its own goroutine with a context that is cancelled when the deadline
// passes, so a well-behaved op can stop early; a misbehaving op is
// abandoned, never joined.
func runWithDeadline(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return ErrCallTimeout
		}
		return ctx.Err()
	}
}

// ExecuteWithTimeout runs an operation under a deadline, returning
// ErrCallTimeout if it does not complete in time.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return runWithDeadline(ctx, timeout, op)
}
