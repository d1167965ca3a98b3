package resilience

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Bulkhead bounds concurrent in-flight invocations of one dependency so
// its load cannot exhaust resources shared with others. It is a pure
// admission gate: it never retries and never inspects the result.
type Bulkhead struct {
	name          string
	maxConcurrent int64
	sem           *semaphore.Weighted

	active   atomic.Int64
	total    atomic.Uint64
	rejected atomic.Uint64
}

// NewBulkhead creates a new bulkhead with the given capacity.
func NewBulkhead(name string, maxConcurrent int64) *Bulkhead {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &Bulkhead{
		name:          name,
		maxConcurrent: maxConcurrent,
		sem:           semaphore.NewWeighted(maxConcurrent),
	}
}

// Name returns the bulkhead's name.
func (b *Bulkhead) Name() string {
	return b.name
}

// Execute runs the operation within the bulkhead. Admission is
// non-blocking: a caller arriving at capacity fails fast with
// ErrBulkheadFull rather than queueing. The operation's outcome is
// passed through unchanged.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	b.total.Add(1)

	if !b.sem.TryAcquire(1) {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	b.active.Add(1)
	err := op(ctx)
	b.active.Add(-1)
	b.sem.Release(1)

	return err
}

// BulkheadResult runs a value-returning operation within the bulkhead.
func BulkheadResult[T any](ctx context.Context, b *Bulkhead, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
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

// ActiveRequests returns the number of in-flight operations.
func (b *Bulkhead) ActiveRequests() int64 {
	return b.active.Load()
}

// TotalRequests returns the total number of admission attempts.
func (b *Bulkhead) TotalRequests() uint64 {
	return b.total.Load()
}

// RejectedRequests returns the number of rejected admission attempts.
func (b *Bulkhead) RejectedRequests() uint64 {
	return b.rejected.Load()
}

// MaxConcurrent returns the bulkhead's capacity.
func (b *Bulkhead) MaxConcurrent() int64 {
	return b.maxConcurrent
}

// Metrics returns a snapshot of the bulkhead's counters.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	return BulkheadMetrics{
		ActiveRequests:   b.active.Load(),
		TotalRequests:    b.total.Load(),
		RejectedRequests: b.rejected.Load(),
		MaxConcurrent:    b.maxConcurrent,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	ActiveRequests   int64
	TotalRequests    uint64
	RejectedRequests uint64
	MaxConcurrent    int64
}
