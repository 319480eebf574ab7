// Package notifier implements the alert delivery channels. Each channel
// handles its own rate limiting, retries and error logging; the dispatcher
// in internal/alert fans one alert out to every selected channel and
// records the per-channel results.
package notifier

import (
	"context"

	"newswatch/internal/domain/entity"
)

// Channel delivers one alert to an external destination.
type Channel interface {
	// Name identifies the channel in alert results and metrics.
	Name() entity.AlertChannel

	// Send delivers the alert. A nil return means the destination
	// acknowledged the delivery; the error taxonomy in common.go
	// classifies failures for the dispatcher's result records.
	Send(ctx context.Context, alert *entity.Alert) error
}
