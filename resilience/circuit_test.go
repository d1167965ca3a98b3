package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("Initial state = %v, want closed", cb.State())
	}
	if cb.Name() != "test" {
		t.Errorf("Name() = %q, want test", cb.Name())
	}
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{})

	if cb.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.config.FailureThreshold)
	}
	if cb.config.RecoveryTimeout != 60*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 60s", cb.config.RecoveryTimeout)
	}
	if cb.config.SuccessThreshold != 3 {
		t.Errorf("SuccessThreshold = %d, want 3", cb.config.SuccessThreshold)
	}
	if cb.config.CallTimeout != 30*time.Second {
		t.Errorf("CallTimeout = %v, want 30s", cb.config.CallTimeout)
	}
	if cb.config.MaxConcurrent != 100 {
		t.Errorf("MaxConcurrent = %d, want 100", cb.config.MaxConcurrent)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
	})

	testErr := errors.New("test error")

	// First 2 failures should not open
	for i := 0; i < 2; i++ {
		err := cb.Call(context.Background(), func(ctx context.Context) error {
			return testErr
		})
		if err != testErr {
			t.Errorf("Call() error = %v, want %v", err, testErr)
		}
		if cb.State() != StateClosed {
			t.Errorf("After %d failures, state = %v, want closed", i+1, cb.State())
		}
	}

	// Third failure should open
	err := cb.Call(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if err != testErr {
		t.Errorf("Call() error = %v, want %v", err, testErr)
	}
	if cb.State() != StateOpen {
		t.Errorf("After 3 failures, state = %v, want open", cb.State())
	}

	// Next request should be rejected
	err = cb.Call(context.Background(), func(ctx context.Context) error {
		t.Error("Should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Call() when open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
	})

	testErr := errors.New("test error")
	fail := func(ctx context.Context) error { return testErr }
	succeed := func(ctx context.Context) error { return nil }

	_ = cb.Call(context.Background(), fail)
	_ = cb.Call(context.Background(), fail)
	_ = cb.Call(context.Background(), succeed)
	_ = cb.Call(context.Background(), fail)
	_ = cb.Call(context.Background(), fail)

	// Streak was broken, so 2+2 failures must not open a threshold-3 breaker.
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_RecoveryCycle(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		SuccessThreshold: 2,
	})

	testErr := errors.New("test error")

	// Open the circuit
	_ = cb.Call(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	// Still inside the recovery window: rejected
	err := cb.Call(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Call() inside recovery window = %v, want ErrCircuitOpen", err)
	}

	time.Sleep(20 * time.Millisecond)

	// First trial success: half-open, not yet closed
	err = cb.Call(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Trial call error = %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("After 1 trial success, state = %v, want half-open", cb.State())
	}

	// Second trial success closes
	err = cb.Call(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Trial call error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("After 2 trial successes, state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		SuccessThreshold: 3,
	})

	testErr := errors.New("test error")

	_ = cb.Call(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// Trial fails: straight back to open
	_ = cb.Call(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if cb.State() != StateOpen {
		t.Errorf("After trial failure, state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_CallTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		CallTimeout:      20 * time.Millisecond,
	})

	err := cb.Call(context.Background(), func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.Is(err, ErrCallTimeout) {
		t.Errorf("Call() = %v, want ErrCallTimeout", err)
	}

	// A timeout counts as a failure
	if cb.State() != StateOpen {
		t.Errorf("After timeout with threshold 1, state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	cb := NewCircuitBreaker("payments", CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
			mu.Unlock()
		},
	})

	_ = cb.Call(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 || transitions[0] != "payments:closed->open" {
		t.Errorf("transitions = %v, want [payments:closed->open]", transitions)
	}
}

func TestCircuitBreaker_ConcurrentFailuresSingleTransition(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  time.Minute,
	})

	testErr := errors.New("test error")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Call(context.Background(), func(ctx context.Context) error {
				return testErr
			})
		}()
	}
	wg.Wait()

	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}
	if got := cb.Metrics().StateChanges; got != 1 {
		t.Errorf("StateChanges = %d, want 1", got)
	}
}

func TestCircuitBreaker_Metrics(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
	})

	testErr := errors.New("test error")
	ctx := context.Background()

	_ = cb.Call(ctx, func(ctx context.Context) error { return nil })
	_ = cb.Call(ctx, func(ctx context.Context) error { return testErr })
	_ = cb.Call(ctx, func(ctx context.Context) error { return testErr })
	_ = cb.Call(ctx, func(ctx context.Context) error { return nil }) // rejected

	m := cb.Metrics()
	if m.TotalRequests != 4 {
		t.Errorf("TotalRequests = %d, want 4", m.TotalRequests)
	}
	if m.SuccessfulRequests != 1 {
		t.Errorf("SuccessfulRequests = %d, want 1", m.SuccessfulRequests)
	}
	if m.FailedRequests != 2 {
		t.Errorf("FailedRequests = %d, want 2", m.FailedRequests)
	}
	if m.RejectedRequests != 1 {
		t.Errorf("RejectedRequests = %d, want 1", m.RejectedRequests)
	}
	if m.State != StateOpen {
		t.Errorf("State = %v, want open", m.State)
	}
	if m.ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", m.ConsecutiveFailures)
	}
}

func TestCallResult(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{})

	got, err := CallResult(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("CallResult() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("CallResult() = %q, want hello", got)
	}

	testErr := errors.New("test error")
	got, err = CallResult(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "partial", testErr
	})
	if err != testErr {
		t.Errorf("CallResult() error = %v, want %v", err, testErr)
	}
	if got != "" {
		t.Errorf("CallResult() on error = %q, want zero value", got)
	}
}
