package health

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// CriticalThreshold is the fraction of MaxAlloc above which the
	// checker reports unhealthy. Value should be between 0 and 1.
	// Default: 0.95 (95%)
	CriticalThreshold float64

	// MaxAlloc is the maximum expected allocation in bytes.
	// If zero, the runtime's reported system memory is used.
	MaxAlloc uint64
}

// MemoryChecker probes process memory usage. It is a ready-made Checker
// for wiring into a Monitor via ProbeChecker.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}

	return &MemoryChecker{config: config}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check performs the memory health probe.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	if maxAlloc == 0 {
		return Unknown("memory stats unavailable")
	}

	usageRatio := float64(stats.Alloc) / float64(maxAlloc)

	details := map[string]string{
		"alloc_bytes":  strconv.FormatUint(stats.Alloc, 10),
		"max_alloc":    strconv.FormatUint(maxAlloc, 10),
		"heap_objects": strconv.FormatUint(stats.HeapObjects, 10),
		"num_gc":       strconv.FormatUint(uint64(stats.NumGC), 10),
		"goroutines":   strconv.Itoa(runtime.NumGoroutine()),
	}

	if usageRatio >= m.config.CriticalThreshold {
		return Unhealthy(
			fmt.Sprintf("memory usage critical: %.1f%%", usageRatio*100), nil,
		).WithDetails(details)
	}

	return Healthy(
		fmt.Sprintf("memory usage normal: %.1f%%", usageRatio*100),
	).WithDetails(details)
}
