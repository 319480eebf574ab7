package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.HealthPort != 9091 {
		t.Errorf("expected HealthPort 9091, got %d", config.HealthPort)
	}
	if config.MetricsPort != 9090 {
		t.Errorf("expected MetricsPort 9090, got %d", config.MetricsPort)
	}
	if config.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected ShutdownTimeout 30s, got %v", config.ShutdownTimeout)
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*WorkerConfig) {},
		},
		{
			name:    "health port below range",
			mutate:  func(c *WorkerConfig) { c.HealthPort = 80 },
			wantErr: true,
		},
		{
			name:    "metrics port above range",
			mutate:  func(c *WorkerConfig) { c.MetricsPort = 70000 },
			wantErr: true,
		},
		{
			name:    "ports collide",
			mutate:  func(c *WorkerConfig) { c.MetricsPort = c.HealthPort },
			wantErr: true,
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *WorkerConfig) { c.ShutdownTimeout = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected valid config, got error: %v", err)
			}
		})
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config := LoadConfigFromEnv(logger, globalTestMetrics)

	defaults := DefaultConfig()
	if config.HealthPort != defaults.HealthPort {
		t.Errorf("expected HealthPort %d, got %d", defaults.HealthPort, config.HealthPort)
	}
	if config.MetricsPort != defaults.MetricsPort {
		t.Errorf("expected MetricsPort %d, got %d", defaults.MetricsPort, config.MetricsPort)
	}
	if config.ShutdownTimeout != defaults.ShutdownTimeout {
		t.Errorf("expected ShutdownTimeout %v, got %v", defaults.ShutdownTimeout, config.ShutdownTimeout)
	}
}

func TestLoadConfigFromEnv_ValidEnv(t *testing.T) {
	t.Setenv("WORKER_HEALTH_PORT", "19191")
	t.Setenv("METRICS_PORT", "19190")
	t.Setenv("SHUTDOWN_TIMEOUT", "45s")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config := LoadConfigFromEnv(logger, globalTestMetrics)

	if config.HealthPort != 19191 {
		t.Errorf("expected HealthPort 19191, got %d", config.HealthPort)
	}
	if config.MetricsPort != 19190 {
		t.Errorf("expected MetricsPort 19190, got %d", config.MetricsPort)
	}
	if config.ShutdownTimeout != 45*time.Second {
		t.Errorf("expected ShutdownTimeout 45s, got %v", config.ShutdownTimeout)
	}
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_HEALTH_PORT", "80")
	t.Setenv("SHUTDOWN_TIMEOUT", "10m")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config := LoadConfigFromEnv(logger, globalTestMetrics)

	defaults := DefaultConfig()
	if config.HealthPort != defaults.HealthPort {
		t.Errorf("expected fallback HealthPort %d, got %d", defaults.HealthPort, config.HealthPort)
	}
	if config.ShutdownTimeout != defaults.ShutdownTimeout {
		t.Errorf("expected fallback ShutdownTimeout %v, got %v", defaults.ShutdownTimeout, config.ShutdownTimeout)
	}

	logs := buf.String()
	if !strings.Contains(logs, "configuration fallback applied") {
		t.Error("expected fallback warning in logs")
	}
}

func TestLoadConfigFromEnv_PortCollisionUsesDefaults(t *testing.T) {
	t.Setenv("WORKER_HEALTH_PORT", "9100")
	t.Setenv("METRICS_PORT", "9100")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config := LoadConfigFromEnv(logger, globalTestMetrics)

	defaults := DefaultConfig()
	if config.HealthPort != defaults.HealthPort || config.MetricsPort != defaults.MetricsPort {
		t.Errorf("expected default ports after collision, got health=%d metrics=%d",
			config.HealthPort, config.MetricsPort)
	}
	if !strings.Contains(buf.String(), "ports collide") {
		t.Error("expected collision warning in logs")
	}
}

func TestLoadConfigFromEnv_ResultIsValid(t *testing.T) {
	t.Setenv("WORKER_HEALTH_PORT", "not-a-number")
	t.Setenv("METRICS_PORT", "-1")
	t.Setenv("SHUTDOWN_TIMEOUT", "garbage")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config := LoadConfigFromEnv(logger, globalTestMetrics)

	if err := config.Validate(); err != nil {
		t.Errorf("loaded config must always validate, got: %v", err)
	}
}
