package repository

import (
	"context"
	"time"

	"pulsewatch/internal/visit/domain"
)

// Repository defines persistence for page visits.
type Repository interface {
	// Save persists a visit and sets its ID.
	Save(ctx context.Context, v *domain.Visit) error
	ListByProject(ctx context.Context, projectID string, limit, offset int32) ([]*domain.Visit, error)
	// DeleteOlderThan removes the project's visits timestamped before cutoff and
	// returns the number of rows deleted. Used by the retention sweeper.
	DeleteOlderThan(ctx context.Context, projectID string, cutoff time.Time) (int64, error)
}
