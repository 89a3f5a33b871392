package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"portfolioadmin/internal/model"
	"portfolioadmin/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Subscribe(ctx context.Context, collection string, fn store.Handler) (store.Subscription, error) {
	args := m.Called(ctx, collection, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(store.Subscription), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, collection, id string, fields model.Fields) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, collection, id string, patch model.Fields) error {
	args := m.Called(ctx, collection, id, patch)
	return args.Error(0)
}

func (m *MockStore) Remove(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
