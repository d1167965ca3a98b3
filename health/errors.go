package health

import "errors"

var (
	// ErrProbeTimeout indicates a probe exceeded its deadline.
	ErrProbeTimeout = errors.New("health: probe timed out")

	// ErrAlreadyStarted indicates Start was called on a running monitor.
	ErrAlreadyStarted = errors.New("health: monitor already started")
)
