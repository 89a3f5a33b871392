package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"portfolioadmin/internal/model"
)

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) CreateRecord(ctx context.Context, fields model.Fields) (string, error) {
	args := m.Called(ctx, fields)
	return args.String(0), args.Error(1)
}

func (m *MockRecordService) UpdateRecord(ctx context.Context, id string, patch model.Fields) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockRecordService) DeleteRecord(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecordService) Collection() string {
	args := m.Called()
	return args.String(0)
}
