package resilience

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/infernolabs/faultkit/health"
)

// ManagerConfig is the file-loadable shape of a Manager's registrations.
// Durations are expressed in milliseconds so configs stay plain integers.
type ManagerConfig struct {
	CircuitBreakers map[string]CircuitBreakerSettings `yaml:"circuit_breakers"`
	Bulkheads       map[string]BulkheadSettings       `yaml:"bulkheads"`
	RetryPolicies   map[string]RetrySettings          `yaml:"retry_policies"`
	HealthChecks    map[string]HealthCheckSettings    `yaml:"health_checks"`
}

// CircuitBreakerSettings mirrors CircuitBreakerConfig for config files.
type CircuitBreakerSettings struct {
	FailureThreshold      int   `yaml:"failure_threshold"`
	RecoveryTimeoutMs     int64 `yaml:"recovery_timeout_ms"`
	SuccessThreshold      int   `yaml:"success_threshold"`
	CallTimeoutMs         int64 `yaml:"call_timeout_ms"`
	MaxConcurrentRequests int64 `yaml:"max_concurrent_requests"`
}

func (s CircuitBreakerSettings) toConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: s.FailureThreshold,
		RecoveryTimeout:  time.Duration(s.RecoveryTimeoutMs) * time.Millisecond,
		SuccessThreshold: s.SuccessThreshold,
		CallTimeout:      time.Duration(s.CallTimeoutMs) * time.Millisecond,
		MaxConcurrent:    s.MaxConcurrentRequests,
	}
}

// BulkheadSettings mirrors a bulkhead's capacity for config files.
type BulkheadSettings struct {
	MaxConcurrent int64 `yaml:"max_concurrent"`
}

// RetrySettings mirrors RetryConfig for config files. Boolean fields are
// pointers so an absent key keeps its default (enabled).
type RetrySettings struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int64   `yaml:"initial_delay_ms"`
	MaxDelayMs        int64   `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	JitterEnabled     *bool   `yaml:"jitter_enabled"`
	RetryOnTimeout    *bool   `yaml:"retry_on_timeout"`
}

func (s RetrySettings) toConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	if s.MaxAttempts > 0 {
		cfg.MaxAttempts = s.MaxAttempts
	}
	if s.InitialDelayMs > 0 {
		cfg.InitialDelay = time.Duration(s.InitialDelayMs) * time.Millisecond
	}
	if s.MaxDelayMs > 0 {
		cfg.MaxDelay = time.Duration(s.MaxDelayMs) * time.Millisecond
	}
	if s.BackoffMultiplier > 0 {
		cfg.Multiplier = s.BackoffMultiplier
	}
	if s.JitterEnabled != nil {
		cfg.Jitter = *s.JitterEnabled
	}
	if s.RetryOnTimeout != nil {
		cfg.RetryOnTimeout = *s.RetryOnTimeout
	}
	return cfg
}

// HealthCheckSettings mirrors health.Config for config files.
type HealthCheckSettings struct {
	Enabled          *bool `yaml:"enabled"`
	CheckIntervalMs  int64 `yaml:"check_interval_ms"`
	TimeoutMs        int64 `yaml:"timeout_ms"`
	FailureThreshold int   `yaml:"failure_threshold"`
	SuccessThreshold int   `yaml:"success_threshold"`
}

func (s HealthCheckSettings) toConfig() health.Config {
	cfg := health.DefaultConfig()
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.CheckIntervalMs > 0 {
		cfg.CheckInterval = time.Duration(s.CheckIntervalMs) * time.Millisecond
	}
	if s.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(s.TimeoutMs) * time.Millisecond
	}
	if s.FailureThreshold > 0 {
		cfg.FailureThreshold = s.FailureThreshold
	}
	if s.SuccessThreshold > 0 {
		cfg.SuccessThreshold = s.SuccessThreshold
	}
	return cfg
}

// ParseConfig parses a YAML manager configuration.
func ParseConfig(data []byte) (*ManagerConfig, error) {
	var cfg ManagerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse resilience config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads and parses a YAML manager configuration file.
func LoadConfig(path string) (*ManagerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resilience config: %w", err)
	}
	return ParseConfig(data)
}

// NewManagerFromConfig creates a Manager with every component named in
// the configuration registered. Health monitors are registered but not
// started; callers attach probes via Start.
func NewManagerFromConfig(cfg *ManagerConfig, opts ...ManagerOption) *Manager {
	m := NewManager(opts...)

	for name, settings := range cfg.CircuitBreakers {
		m.AddCircuitBreaker(name, settings.toConfig())
	}
	for name, settings := range cfg.Bulkheads {
		m.AddBulkhead(name, settings.MaxConcurrent)
	}
	for name, settings := range cfg.RetryPolicies {
		m.AddRetryPolicy(name, settings.toConfig())
	}
	for name, settings := range cfg.HealthChecks {
		m.AddHealthMonitor(name, settings.toConfig())
	}

	return m
}
