// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.
package repository

import (
	"context"
	"errors"

	"docviewer/internal/model"
)

// ErrNotFound is returned when no session is recorded under an id.
var ErrNotFound = errors.New("session not found")

// SessionRepository records the local lifecycle of remote viewing sessions.
// No business logic here, strictly persistence operations.
type SessionRepository interface {
	// Create inserts a newly created session.
	Create(ctx context.Context, s *model.ViewingSession) error

	// UpdateState moves a session to state. errMsg is stored for failed uploads and may be empty.
	UpdateState(ctx context.Context, id string, state model.SessionState, errMsg string) error

	// FindByID returns a session by its id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.ViewingSession, error)
}
