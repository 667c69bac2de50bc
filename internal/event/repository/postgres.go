package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pulsewatch/internal/event/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const eventColumns = `id, project_id, ts, level, message, stack, user_agent, url,
	session_id, user_id, tags, extra, duration_ms, started_at, screenshot, click_trail, created_at`

const insertEvent = `INSERT INTO events
	(project_id, ts, level, message, stack, user_agent, url, session_id, user_id,
	 tags, extra, duration_ms, started_at, screenshot, click_trail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id`

// Save persists the event to the database. It sets e.ID on success.
func (r *PostgresRepository) Save(ctx context.Context, e *domain.Event) error {
	return r.insert(ctx, r.db, e)
}

// SaveBatch persists events in one transaction so a flush is stored all-or-nothing.
// Each event's ID is set on success.
func (r *PostgresRepository) SaveBatch(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := r.insert(ctx, tx, e); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepository) insert(ctx context.Context, q execQuerier, e *domain.Event) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return q.QueryRowContext(ctx, insertEvent,
		e.ProjectID, e.Timestamp, e.Level, e.Message,
		nullStringFromPtr(e.Stack), nullStringFromPtr(e.UserAgent), nullStringFromPtr(e.URL),
		nullStringFromPtr(e.SessionID), nullStringFromPtr(e.UserID),
		jsonOrEmpty(e.Tags), jsonOrEmpty(e.Extra),
		nullInt64FromPtr(e.DurationMS), nullTimeFromPtr(e.StartedAt),
		nullStringFromPtr(e.Screenshot), nullJSON(e.ClickTrail), createdAt,
	).Scan(&e.ID)
}

// GetByID returns the event for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = $1", id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// ListByProject returns events for the given project, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string, limit, offset int32) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE project_id = $1 ORDER BY ts DESC LIMIT $2 OFFSET $3",
		projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the event with the given id. Returns false when no row matched.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var stack, userAgent, url, sessionID, userID, screenshot sql.NullString
	var durationMS sql.NullInt64
	var startedAt sql.NullTime
	var tags, extra, clickTrail []byte
	err := row.Scan(&e.ID, &e.ProjectID, &e.Timestamp, &e.Level, &e.Message,
		&stack, &userAgent, &url, &sessionID, &userID,
		&tags, &extra, &durationMS, &startedAt, &screenshot, &clickTrail, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Stack = ptrFromNullString(stack)
	e.UserAgent = ptrFromNullString(userAgent)
	e.URL = ptrFromNullString(url)
	e.SessionID = ptrFromNullString(sessionID)
	e.UserID = ptrFromNullString(userID)
	e.Screenshot = ptrFromNullString(screenshot)
	e.Tags = jsonOrEmpty(tags)
	e.Extra = jsonOrEmpty(extra)
	if clickTrail != nil {
		e.ClickTrail = json.RawMessage(clickTrail)
	}
	if durationMS.Valid {
		e.DurationMS = &durationMS.Int64
	}
	if startedAt.Valid {
		t := startedAt.Time
		e.StartedAt = &t
	}
	return &e, nil
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

func nullTimeFromPtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func jsonOrEmpty(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(b)
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
