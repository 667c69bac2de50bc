package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pulsewatch/internal/project/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a project repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const projectColumns = "id, name, api_key_id, api_key_hash, visits_retention_days, created_at"

// GetByID returns the project for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = $1", id)
	return scanProject(row)
}

// GetByAPIKeyID returns the project owning the given API key id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByAPIKeyID(ctx context.Context, apiKeyID string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE api_key_id = $1", apiKeyID)
	return scanProject(row)
}

// ListWithRetention returns all projects that have a positive visits retention window.
// Projects without a window are skipped entirely; retention is opt-in.
func (r *PostgresRepository) ListWithRetention(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE visits_retention_days IS NOT NULL AND visits_retention_days > 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create persists the project to the database. The project must have ID, APIKeyID, and APIKeyHash set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Project) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, api_key_id, api_key_hash, visits_retention_days, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.APIKeyID, p.APIKeyHash, nullInt(p.VisitsRetentionDays), createdAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var retention sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &p.APIKeyID, &p.APIKeyHash, &retention, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if retention.Valid {
		v := int(retention.Int64)
		p.VisitsRetentionDays = &v
	}
	return &p, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
