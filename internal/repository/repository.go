package repository

import (
	"context"

	"docviewer/internal/model"
)

// NopSessionRepository is used when no ledger database is configured.
// Writes are dropped and every lookup misses.
type NopSessionRepository struct{}

var _ SessionRepository = NopSessionRepository{}

func (NopSessionRepository) Create(context.Context, *model.ViewingSession) error { return nil }

func (NopSessionRepository) UpdateState(context.Context, string, model.SessionState, string) error {
	return nil
}

func (NopSessionRepository) FindByID(context.Context, string) (*model.ViewingSession, error) {
	return nil, ErrNotFound
}
