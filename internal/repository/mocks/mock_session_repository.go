package mocks

import (
	"context"

	"docviewer/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *model.ViewingSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) UpdateState(ctx context.Context, id string, state model.SessionState, errMsg string) error {
	args := m.Called(ctx, id, state, errMsg)
	return args.Error(0)
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id string) (*model.ViewingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ViewingSession), args.Error(1)
}
