// Package health provides background health monitoring primitives.
//
// A Monitor runs a probe on a fixed interval and tracks the component's
// status with hysteresis: the status only flips after a configurable
// number of consecutive successes or failures, so a single flaky probe
// does not flap the reported state.
//
// # Core Concepts
//
// A Checker is any component that can report its health. A ProbeFunc is
// the raw probe signature the Monitor runs; ProbeChecker adapts a
// Checker into one. Status is one of Unknown, Healthy, or Unhealthy.
//
// # Basic Usage
//
//	mon := health.NewMonitor("database", health.DefaultConfig())
//	err := mon.Start(func(ctx context.Context) (health.Result, error) {
//	    return health.Healthy("ok"), db.PingContext(ctx)
//	})
//	defer mon.Stop()
//
//	if mon.IsHealthy() {
//	    // route traffic
//	}
//
// # HTTP Endpoints
//
// The package provides HTTP handlers for common probe patterns:
//
//	// Liveness probe (for Kubernetes)
//	http.Handle("/healthz", health.LivenessHandler())
//
//	// Readiness probe over monitor snapshots
//	http.Handle("/readyz", health.ReadinessHandler(dbMon, cacheMon))
//
//	// Detailed status report
//	http.Handle("/health", health.StatusHandler(dbMon, cacheMon))
//
// Handlers read cached monitor state and never run probes inline.
package health
