package notifier

import (
	"context"

	"newswatch/internal/domain/entity"
)

// NoopChannel is a no-operation implementation of the Channel interface.
// It stands in for disabled channels so the dispatcher never needs nil
// checks. This follows the Null Object pattern.
type NoopChannel struct {
	name entity.AlertChannel
}

// NewNoopChannel creates a NoopChannel reporting the given name.
func NewNoopChannel(name entity.AlertChannel) *NoopChannel {
	return &NoopChannel{name: name}
}

func (n *NoopChannel) Name() entity.AlertChannel { return n.name }

// Send does nothing and returns nil immediately.
func (n *NoopChannel) Send(ctx context.Context, alert *entity.Alert) error {
	// No-op: intentionally does nothing
	return nil
}
