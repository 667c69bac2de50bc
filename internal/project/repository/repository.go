package repository

import (
	"context"

	"pulsewatch/internal/project/domain"
)

// Repository defines persistence for projects.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetByAPIKeyID(ctx context.Context, apiKeyID string) (*domain.Project, error)
	ListWithRetention(ctx context.Context) ([]*domain.Project, error)
	Create(ctx context.Context, p *domain.Project) error
}
