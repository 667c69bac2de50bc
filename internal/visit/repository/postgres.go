package repository

import (
	"context"
	"database/sql"
	"time"

	"pulsewatch/internal/visit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a visit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const visitColumns = "id, project_id, url, pathname, referrer, user_agent, session_id, user_id, duration_ms, ts, created_at"

// Save persists the visit to the database. It sets v.ID on success.
func (r *PostgresRepository) Save(ctx context.Context, v *domain.Visit) error {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return r.db.QueryRowContext(ctx,
		`INSERT INTO page_visits
		 (project_id, url, pathname, referrer, user_agent, session_id, user_id, duration_ms, ts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		v.ProjectID, v.URL, v.Pathname,
		nullStringFromPtr(v.Referrer), nullStringFromPtr(v.UserAgent),
		nullStringFromPtr(v.SessionID), nullStringFromPtr(v.UserID),
		nullInt64FromPtr(v.DurationMS), v.Timestamp, createdAt,
	).Scan(&v.ID)
}

// ListByProject returns visits for the given project, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string, limit, offset int32) ([]*domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+visitColumns+" FROM page_visits WHERE project_id = $1 ORDER BY ts DESC LIMIT $2 OFFSET $3",
		projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Visit, 0)
	for rows.Next() {
		var v domain.Visit
		var referrer, userAgent, sessionID, userID sql.NullString
		var durationMS sql.NullInt64
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.URL, &v.Pathname,
			&referrer, &userAgent, &sessionID, &userID, &durationMS, &v.Timestamp, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Referrer = ptrFromNullString(referrer)
		v.UserAgent = ptrFromNullString(userAgent)
		v.SessionID = ptrFromNullString(sessionID)
		v.UserID = ptrFromNullString(userID)
		if durationMS.Valid {
			v.DurationMS = &durationMS.Int64
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes the project's visits with ts before cutoff and returns the rows deleted.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, projectID string, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM page_visits WHERE project_id = $1 AND ts < $2", projectID, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullStringFromPtr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrFromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}

func nullInt64FromPtr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
