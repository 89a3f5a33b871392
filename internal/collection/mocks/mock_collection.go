package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"portfolioadmin/internal/collection"
	"portfolioadmin/internal/model"
)

// MockCollection mocks the read and mutation surface of collection.Sync.
type MockCollection[T any] struct {
	mock.Mock
}

func (m *MockCollection[T]) State() collection.State[T] {
	args := m.Called()
	return args.Get(0).(collection.State[T])
}

func (m *MockCollection[T]) Add(ctx context.Context, record T) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *MockCollection[T]) Update(ctx context.Context, id string, patch model.Fields) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockCollection[T]) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
