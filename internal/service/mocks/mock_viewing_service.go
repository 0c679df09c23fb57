package mocks

import (
	"context"

	"docviewer/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockViewingService struct {
	mock.Mock
}

func (m *MockViewingService) OpenDefault(ctx context.Context) (*model.ViewingSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ViewingSession), args.Error(1)
}

func (m *MockViewingService) OpenDocument(ctx context.Context, filename string) (*model.ViewingSession, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ViewingSession), args.Error(1)
}

func (m *MockViewingService) Session(ctx context.Context, id string) (*model.ViewingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ViewingSession), args.Error(1)
}

func (m *MockViewingService) Documents(ctx context.Context) ([]model.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockViewingService) Wait(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
