package repository

import (
	"context"
	"time"

	"newswatch/internal/domain/entity"
)

// AlertRepository persists alerts and their per-channel delivery results.
type AlertRepository interface {
	// Create inserts the alert and assigns its ID.
	Create(ctx context.Context, alert *entity.Alert) error

	Get(ctx context.Context, id int64) (*entity.Alert, error)

	// UpdateStatus records a delivery outcome: status, sent_at and the
	// per-channel result vector, written atomically.
	UpdateStatus(ctx context.Context, id int64, status entity.AlertStatus, sentAt *time.Time, results []entity.ChannelResult) error

	// IncrementResend bumps resend_count for an operator-initiated resend.
	IncrementResend(ctx context.Context, id int64) error

	// CountCreatedSince returns how many alerts were created at or after
	// since. Backs the hourly admission rate limit.
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)

	// ListPending returns alerts still pending, oldest first. Used for
	// replay after a restart.
	ListPending(ctx context.Context, limit int) ([]*entity.Alert, error)

	ListRecent(ctx context.Context, limit int) ([]*entity.Alert, error)

	// DeleteOlderThan evicts alerts past the retention horizon.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
