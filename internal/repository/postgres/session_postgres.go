package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"docviewer/internal/model"
	"docviewer/internal/repository"
)

// SessionPostgres is a PostgreSQL implementation of repository.SessionRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type SessionPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionPostgres creates a new SessionPostgres repository.
func NewSessionPostgres(db *sql.DB) *SessionPostgres {
	return &SessionPostgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.SessionRepository = (*SessionPostgres)(nil)

// Create inserts a new session row.
func (r *SessionPostgres) Create(ctx context.Context, s *model.ViewingSession) error {
	const q = `
		INSERT INTO viewing_sessions (id, display_name, state, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		s.ID,
		s.DisplayName,
		string(s.State),
		s.Error,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

// UpdateState sets the state and error message of a session.
func (r *SessionPostgres) UpdateState(ctx context.Context, id string, state model.SessionState, errMsg string) error {
	const q = `
		UPDATE viewing_sessions
		SET state = $2, error = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q, id, string(state), errMsg, r.now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindByID fetches a single session by its id.
func (r *SessionPostgres) FindByID(ctx context.Context, id string) (*model.ViewingSession, error) {
	const q = `
		SELECT id, display_name, state, error, created_at, updated_at
		FROM viewing_sessions
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var (
		s     model.ViewingSession
		state string
	)
	if err := row.Scan(
		&s.ID,
		&s.DisplayName,
		&state,
		&s.Error,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	s.State = model.SessionState(state)
	return &s, nil
}
