package mocks

import (
	"context"

	"docviewer/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Read(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDocumentStore) List(ctx context.Context) ([]model.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}
