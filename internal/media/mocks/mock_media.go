package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"portfolioadmin/internal/media"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Upload(ctx context.Context, r io.Reader, filename string) (media.UploadResult, error) {
	args := m.Called(ctx, r, filename)
	return args.Get(0).(media.UploadResult), args.Error(1)
}

func (m *MockClient) Delete(ctx context.Context, assetID string, kind media.ResourceType) error {
	args := m.Called(ctx, assetID, kind)
	return args.Error(0)
}

type MockDestroyer struct {
	mock.Mock
}

func (m *MockDestroyer) Destroy(ctx context.Context, publicID string, kind media.ResourceType) (string, error) {
	args := m.Called(ctx, publicID, kind)
	return args.String(0), args.Error(1)
}
