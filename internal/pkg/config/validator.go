package config

import (
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule validates a standard five-field cron expression
// ("minute hour day month weekday") using the robfig/cron/v3 parser, the
// same parser the scheduler runs, so anything accepted here is schedulable.
//
// Validation tool: https://crontab.guru/
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	return nil
}

// ValidateTimezone validates an IANA timezone name ("UTC",
// "America/New_York") by loading it with time.LoadLocation. Validation can
// fail for valid names when the host is missing the tzdata package.
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}

	_, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}

	return nil
}

// ValidateDuration validates that a duration falls within [min, max]
// inclusive.
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}

	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}

	return nil
}

// ValidateIntRange validates that an integer falls within [min, max]
// inclusive.
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}

	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}

	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}

	return nil
}

// ValidateFloatRange validates that a float falls within [min, max]
// inclusive and is a real number.
func ValidateFloatRange(value, min, max float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("value must be a finite number, got %g", value)
	}

	if min > max {
		return fmt.Errorf("invalid range: min (%g) cannot be greater than max (%g)", min, max)
	}

	if value < min {
		return fmt.Errorf("value %g is below minimum %g", value, min)
	}

	if value > max {
		return fmt.Errorf("value %g exceeds maximum %g", value, max)
	}

	return nil
}

// ValidateUnitInterval validates that a value lies in [0, 1]. Used for
// similarity weights and thresholds.
func ValidateUnitInterval(value float64) error {
	return ValidateFloatRange(value, 0, 1)
}

// ValidateWeightsSum validates that a set of weights sums to 1.0 within a
// small epsilon. Weight vectors that do not sum to one silently skew
// combined similarity scores, so this is checked fail-closed at startup.
func ValidateWeightsSum(weights ...float64) error {
	var sum float64
	for _, w := range weights {
		if err := ValidateUnitInterval(w); err != nil {
			return err
		}
		sum += w
	}

	const epsilon = 1e-6
	if math.Abs(sum-1.0) > epsilon {
		return fmt.Errorf("weights must sum to 1.0, got %g", sum)
	}

	return nil
}

// ValidatePositiveDuration validates that a duration is strictly positive.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}

	return nil
}

// ValidateHTTPURL validates that a string is an absolute http or https URL.
// Used for webhook endpoints and feed URLs.
func ValidateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("invalid URL: cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}

	return nil
}
