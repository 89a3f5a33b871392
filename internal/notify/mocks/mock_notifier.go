package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Success(ctx context.Context, msg string) {
	m.Called(ctx, msg)
}

func (m *MockNotifier) Failure(ctx context.Context, msg string, err error) {
	m.Called(ctx, msg, err)
}
