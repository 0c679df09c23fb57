package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateSession(ctx context.Context, displayName string) (string, error) {
	args := m.Called(ctx, displayName)
	return args.String(0), args.Error(1)
}

func (m *MockClient) UploadSource(ctx context.Context, sessionID string, body []byte) error {
	args := m.Called(ctx, sessionID, body)
	return args.Error(0)
}
