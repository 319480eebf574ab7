package notifier

import (
	"context"
	"testing"

	"newswatch/internal/domain/entity"
)

func TestNoopChannel(t *testing.T) {
	channel := NewNoopChannel(entity.ChannelEmail)

	if channel.Name() != entity.ChannelEmail {
		t.Errorf("expected reported name email, got %q", channel.Name())
	}
	if err := channel.Send(context.Background(), testAlert()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if err := channel.Send(context.Background(), nil); err != nil {
		t.Errorf("expected nil error for nil alert, got %v", err)
	}
}
