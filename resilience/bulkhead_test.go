package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestNewBulkhead_DefaultCapacity(t *testing.T) {
	b := NewBulkhead("test", 0)

	if b.MaxConcurrent() != 10 {
		t.Errorf("MaxConcurrent() = %d, want 10", b.MaxConcurrent())
	}
	if b.Name() != "test" {
		t.Errorf("Name() = %q, want test", b.Name())
	}
}

func TestBulkhead_PassesThroughError(t *testing.T) {
	b := NewBulkhead("test", 2)

	testErr := errors.New("test error")
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
}

func TestBulkhead_RejectsAtCapacity(t *testing.T) {
	b := NewBulkhead("test", 2)

	hold := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(ctx context.Context) error {
				started <- struct{}{}
				<-hold
				return nil
			})
		}()
	}

	// Wait until both slots are occupied
	<-started
	<-started

	if got := b.ActiveRequests(); got != 2 {
		t.Errorf("ActiveRequests() = %d, want 2", got)
	}

	// Third caller fails fast
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("Should not be called at capacity")
		return nil
	})
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() at capacity = %v, want ErrBulkheadFull", err)
	}

	close(hold)
	wg.Wait()

	// Capacity released: next caller is admitted
	err = b.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("Execute() after release = %v, want nil", err)
	}
	if got := b.ActiveRequests(); got != 0 {
		t.Errorf("ActiveRequests() after completion = %d, want 0", got)
	}
}

func TestBulkhead_Metrics(t *testing.T) {
	b := NewBulkhead("test", 1)

	hold := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func(ctx context.Context) error {
			started <- struct{}{}
			<-hold
			return nil
		})
	}()
	<-started

	_ = b.Execute(context.Background(), func(ctx context.Context) error { return nil })

	close(hold)
	wg.Wait()

	m := b.Metrics()
	if m.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", m.TotalRequests)
	}
	if m.RejectedRequests != 1 {
		t.Errorf("RejectedRequests = %d, want 1", m.RejectedRequests)
	}
	if m.ActiveRequests != 0 {
		t.Errorf("ActiveRequests = %d, want 0", m.ActiveRequests)
	}
	if m.MaxConcurrent != 1 {
		t.Errorf("MaxConcurrent = %d, want 1", m.MaxConcurrent)
	}
}

func TestBulkheadResult(t *testing.T) {
	b := NewBulkhead("test", 2)

	got, err := BulkheadResult(context.Background(), b, func(ctx context.Context) ([]byte, error) {
		return []byte("payload"), nil
	})
	if err != nil {
		t.Fatalf("BulkheadResult() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("BulkheadResult() = %q, want payload", got)
	}
}
