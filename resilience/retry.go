package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 1 second
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30 seconds
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// Jitter perturbs each delay by up to ±25% to avoid synchronized
	// retry storms. Enabled in DefaultRetryConfig.
	Jitter bool

	// RetryOnTimeout controls whether ErrCallTimeout from a wrapped
	// circuit breaker triggers further attempts. Enabled in
	// DefaultRetryConfig.
	RetryOnTimeout bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		RetryOnTimeout: true,
	}
}

// RetryPolicy executes an operation repeatedly with exponential backoff.
// It is stateless given its configuration; each invocation is independent.
//
// The policy does not classify errors as retryable. Callers wrap only
// operations that are safe to invoke more than once.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a new retry policy.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}

	return &RetryPolicy{config: config}
}

// Execute runs the operation with retry logic. Attempts run sequentially
// up to MaxAttempts; intermediate errors are discarded and the last
// observed error is returned. No delay is inserted after the final
// attempt.
func (r *RetryPolicy) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !r.config.RetryOnTimeout && errors.Is(err, ErrCallTimeout) {
			return err
		}

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// RetryResult runs a value-returning operation with retry logic.
func RetryResult[T any](ctx context.Context, r *RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := r.Execute(ctx, func(ctx context.Context) error {
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

// delay computes the backoff before the attempt following the given one:
// min(InitialDelay * Multiplier^(attempt-1), MaxDelay), optionally
// perturbed by ±25% and clamped non-negative.
func (r *RetryPolicy) delay(attempt int) time.Duration {
	base := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	base = math.Min(base, float64(r.config.MaxDelay))

	if r.config.Jitter {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		base += base * 0.25 * (2*rand.Float64() - 1)
		base = math.Max(base, 0)
	}

	return time.Duration(base)
}

// Config returns the retry configuration.
func (r *RetryPolicy) Config() RetryConfig {
	return r.config
}
