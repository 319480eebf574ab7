package worker

import (
	"fmt"
	"log/slog"
	"time"

	"newswatch/internal/pkg/config"
)

// WorkerConfig holds the operational settings of the worker process that
// are not owned by a pipeline stage: the observability ports and the
// shutdown budget. Stage-level knobs (crawl cadence, dedup thresholds,
// alert limits) live with their stages.
type WorkerConfig struct {
	// HealthPort serves the liveness and readiness probes.
	// Range: 1024-65535. Default: 9091.
	HealthPort int

	// MetricsPort serves the Prometheus exposition endpoint.
	// Range: 1024-65535. Default: 9090.
	MetricsPort int

	// ShutdownTimeout bounds the graceful drain of the whole pipeline.
	// Default: 30s.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		HealthPort:      9091,
		MetricsPort:     9090,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration, collecting every violation.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health and metrics ports must differ, both %d", c.HealthPort))
	}
	if err := config.ValidatePositiveDuration(c.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("shutdown timeout: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration fail-open: invalid
// values fall back to defaults with a warning and a metrics bump, and the
// returned configuration is always valid.
//
// Environment variables:
//   - WORKER_HEALTH_PORT (default 9091, range 1024-65535)
//   - METRICS_PORT (default 9090, range 1024-65535)
//   - SHUTDOWN_TIMEOUT (default 30s, range 1s-5m)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	fallbackApplied := false

	load := func(field string, result config.ConfigLoadResult) config.ConfigLoadResult {
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field)
			for _, warning := range result.Warnings {
				logger.Warn("configuration fallback applied",
					slog.String("field", field),
					slog.String("warning", warning))
			}
		}
		return result
	}

	healthPort := load("health_port", config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	}))
	cfg.HealthPort = healthPort.Value.(int)

	metricsPort := load("metrics_port", config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	}))
	cfg.MetricsPort = metricsPort.Value.(int)

	shutdown := load("shutdown_timeout", config.LoadEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 5*time.Minute)
	}))
	cfg.ShutdownTimeout = shutdown.Value.(time.Duration)

	if cfg.HealthPort == cfg.MetricsPort {
		logger.Warn("health and metrics ports collide, using defaults",
			slog.Int("port", cfg.HealthPort))
		defaults := DefaultConfig()
		cfg.HealthPort = defaults.HealthPort
		cfg.MetricsPort = defaults.MetricsPort
		fallbackApplied = true
		metrics.RecordFallback("ports")
	}

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()
	return &cfg
}
