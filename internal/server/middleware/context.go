package middleware

import (
	"context"

	projectdomain "pulsewatch/internal/project/domain"
)

type contextKey struct{ name string }

var (
	projectKey = contextKey{"project"}
	userIDKey  = contextKey{"user_id"}
)

// WithProject returns a context carrying the API-key-authenticated project.
// Ingestion handlers read it via GetProject.
func WithProject(ctx context.Context, p *projectdomain.Project) context.Context {
	return context.WithValue(ctx, projectKey, p)
}

// GetProject returns the authenticated project from context and true if set; otherwise nil, false.
func GetProject(ctx context.Context) (*projectdomain.Project, bool) {
	v, ok := ctx.Value(projectKey).(*projectdomain.Project)
	return v, ok
}

// WithUserID returns a context carrying the dashboard user id from a validated access token.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the dashboard user id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}
