package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvString_WithValue(t *testing.T) {
	t.Setenv("TEST_STRING", "custom_value")

	result := LoadEnvString("TEST_STRING", "default_value")

	assert.Equal(t, "custom_value", result)
}

func TestLoadEnvString_WithoutValue(t *testing.T) {
	result := LoadEnvString("TEST_STRING", "default_value")

	assert.Equal(t, "default_value", result)
}

func TestLoadEnvWithFallback_ValidValue(t *testing.T) {
	t.Setenv("TEST_CRON", "0 6 * * *")

	result := LoadEnvWithFallback("TEST_CRON", "*/10 * * * *", ValidateCronSchedule)

	assert.Equal(t, "0 6 * * *", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_InvalidValue(t *testing.T) {
	t.Setenv("TEST_CRON", "not a schedule")

	result := LoadEnvWithFallback("TEST_CRON", "*/10 * * * *", ValidateCronSchedule)

	assert.Equal(t, "*/10 * * * *", result.Value)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "TEST_CRON")
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvWithFallback_UnsetUsesDefaultSilently(t *testing.T) {
	result := LoadEnvWithFallback("TEST_CRON_UNSET", "*/10 * * * *", ValidateCronSchedule)

	assert.Equal(t, "*/10 * * * *", result.Value)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvDuration_Valid(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "45s")

	result := LoadEnvDuration("TEST_TIMEOUT", 10*time.Minute, ValidatePositiveDuration)

	assert.Equal(t, 45*time.Second, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvDuration_ParseFailure(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "forty five seconds")

	result := LoadEnvDuration("TEST_TIMEOUT", 10*time.Minute, ValidatePositiveDuration)

	assert.Equal(t, 10*time.Minute, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvDuration_ValidationFailure(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "-30s")

	result := LoadEnvDuration("TEST_TIMEOUT", 10*time.Minute, ValidatePositiveDuration)

	assert.Equal(t, 10*time.Minute, result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Len(t, result.Warnings, 1)
}

func TestLoadEnvInt_Valid(t *testing.T) {
	t.Setenv("TEST_WORKERS", "8")

	result := LoadEnvInt("TEST_WORKERS", 5, func(v int) error { return ValidateIntRange(v, 1, 50) })

	assert.Equal(t, 8, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvInt_OutOfRange(t *testing.T) {
	t.Setenv("TEST_WORKERS", "500")

	result := LoadEnvInt("TEST_WORKERS", 5, func(v int) error { return ValidateIntRange(v, 1, 50) })

	assert.Equal(t, 5, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvInt_NotANumber(t *testing.T) {
	t.Setenv("TEST_WORKERS", "many")

	result := LoadEnvInt("TEST_WORKERS", 5, nil)

	assert.Equal(t, 5, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvFloat_Valid(t *testing.T) {
	t.Setenv("TEST_THRESHOLD", "0.9")

	result := LoadEnvFloat("TEST_THRESHOLD", 0.85, ValidateUnitInterval)

	assert.Equal(t, 0.9, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvFloat_OutOfRange(t *testing.T) {
	t.Setenv("TEST_THRESHOLD", "1.5")

	result := LoadEnvFloat("TEST_THRESHOLD", 0.85, ValidateUnitInterval)

	assert.Equal(t, 0.85, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvBool_Valid(t *testing.T) {
	t.Setenv("TEST_FLAG", "true")

	result := LoadEnvBool("TEST_FLAG", false)

	assert.Equal(t, true, result.Value)
	assert.False(t, result.FallbackApplied)
}

func TestLoadEnvBool_Invalid(t *testing.T) {
	t.Setenv("TEST_FLAG", "yes")

	result := LoadEnvBool("TEST_FLAG", false)

	assert.Equal(t, false, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvStringSlice_TrimsAndDropsEmpty(t *testing.T) {
	t.Setenv("TEST_CHANNELS", " slack , email ,, webhook")

	result := LoadEnvStringSlice("TEST_CHANNELS", []string{"webhook"})

	assert.Equal(t, []string{"slack", "email", "webhook"}, result)
}

func TestLoadEnvStringSlice_UnsetUsesDefault(t *testing.T) {
	result := LoadEnvStringSlice("TEST_CHANNELS_UNSET", []string{"webhook"})

	assert.Equal(t, []string{"webhook"}, result)
}

func TestLoadEnvStringSlice_OnlySeparatorsUsesDefault(t *testing.T) {
	t.Setenv("TEST_CHANNELS", " , ,")

	result := LoadEnvStringSlice("TEST_CHANNELS", []string{"webhook"})

	assert.Equal(t, []string{"webhook"}, result)
}
