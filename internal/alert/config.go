// Package alert implements the dispatch stage: admission gating of
// unique articles, priority derivation, channel selection and fan-out
// delivery with persisted per-channel results.
package alert

import (
	"log/slog"
	"time"

	"newswatch/internal/pkg/config"
)

// Config holds the dispatcher knobs. All of them load fail-open: alerting
// misconfiguration degrades to defaults rather than stopping the pipeline.
type Config struct {
	// MaxAlertsPerHour caps admissions over the trailing hour (strict <).
	MaxAlertsPerHour int

	// Cooldown suppresses alerts for similar items within the window.
	Cooldown time.Duration

	// MinQualityScore is the admission floor for the quality heuristic.
	MinQualityScore int

	// ChannelTimeout bounds each channel delivery.
	ChannelTimeout time.Duration

	// TrustedSources earn a quality point.
	TrustedSources []string

	// QueueSize bounds the pending dispatch queue.
	QueueSize int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxAlertsPerHour: 20,
		Cooldown:         5 * time.Minute,
		MinQualityScore:  3,
		ChannelTimeout:   10 * time.Second,
		QueueSize:        256,
	}
}

// LoadConfig reads the dispatcher configuration from environment variables.
//
// Environment variables:
//   - MAX_ALERTS_PER_HOUR (default 20, range 1-1000)
//   - ALERT_COOLDOWN_MINUTES (default 5, range 1-1440)
//   - ALERT_MIN_QUALITY_SCORE (default 3, range 0-10)
//   - ALERT_CHANNEL_TIMEOUT (default 10s)
//   - ALERT_TRUSTED_SOURCES (comma-separated feed ids)
func LoadConfig() Config {
	cfg := DefaultConfig()

	maxPerHour := config.LoadEnvInt("MAX_ALERTS_PER_HOUR", 20, func(v int) error {
		return config.ValidateIntRange(v, 1, 1000)
	})
	cooldownMinutes := config.LoadEnvInt("ALERT_COOLDOWN_MINUTES", 5, func(v int) error {
		return config.ValidateIntRange(v, 1, 1440)
	})
	minQuality := config.LoadEnvInt("ALERT_MIN_QUALITY_SCORE", 3, func(v int) error {
		return config.ValidateIntRange(v, 0, 10)
	})
	channelTimeout := config.LoadEnvDuration("ALERT_CHANNEL_TIMEOUT", 10*time.Second, config.ValidatePositiveDuration)

	for _, result := range []config.ConfigLoadResult{maxPerHour, cooldownMinutes, minQuality, channelTimeout} {
		for _, warning := range result.Warnings {
			slog.Warn(warning)
		}
	}

	cfg.MaxAlertsPerHour = maxPerHour.Value.(int)
	cfg.Cooldown = time.Duration(cooldownMinutes.Value.(int)) * time.Minute
	cfg.MinQualityScore = minQuality.Value.(int)
	cfg.ChannelTimeout = channelTimeout.Value.(time.Duration)
	cfg.TrustedSources = config.LoadEnvStringSlice("ALERT_TRUSTED_SOURCES", nil)
	return cfg
}
