package health

import (
	"context"
	"time"
)

// Status represents the health status of a monitored component.
type Status int

const (
	// StatusUnknown means no probe has crossed a threshold yet.
	StatusUnknown Status = iota
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a single health probe.
type Result struct {
	// Status is the probed health status.
	Status Status

	// Message provides additional context about the status.
	Message string

	// Details contains arbitrary metadata about the probe.
	Details map[string]string

	// Duration is how long the probe took.
	Duration time.Duration

	// Timestamp is when the probe was performed.
	Timestamp time.Time

	// Err is the probe error, if any.
	Err error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Unknown creates a result that affects neither counters nor status.
func Unknown(message string) Result {
	return Result{
		Status:    StatusUnknown,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]string) Result {
	r.Details = details
	return r
}

// Checker is the interface for health probes.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health probe and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as
// Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health probe.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}
