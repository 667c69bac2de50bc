package repository

import (
	"context"

	"pulsewatch/internal/event/domain"
)

// Repository defines persistence for events.
type Repository interface {
	// Save persists a single event and sets its ID.
	Save(ctx context.Context, e *domain.Event) error
	// SaveBatch persists events in order and sets each ID. Used by the batch ingestion path.
	SaveBatch(ctx context.Context, events []*domain.Event) error
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int32) ([]*domain.Event, error)
	// Delete removes the event with the given id. Returns false if no row matched.
	Delete(ctx context.Context, id int64) (bool, error)
}
