package repository

import (
	"context"

	"newswatch/internal/domain/entity"
)

// DuplicateRepository persists directed duplicate-to-original links.
type DuplicateRepository interface {
	// Create inserts the link. Returns entity.ErrDuplicateLink when the
	// (original, duplicate) pair is already recorded.
	Create(ctx context.Context, link *entity.DuplicateLink) error

	ListByOriginal(ctx context.Context, originalID int64) ([]*entity.DuplicateLink, error)

	// FindByDuplicate returns the link pointing away from the given
	// duplicate article, or (nil, nil) when none exists.
	FindByDuplicate(ctx context.Context, duplicateID int64) (*entity.DuplicateLink, error)
}
