package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fattura/internal/domain"
)

// MockArtifactStorage is a mock implementation of port.ArtifactStorage.
type MockArtifactStorage struct {
	mock.Mock
}

func (m *MockArtifactStorage) Write(ctx context.Context, kind domain.ArtifactKind, filename string, data []byte) (string, error) {
	args := m.Called(ctx, kind, filename, data)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStorage) Path(kind domain.ArtifactKind, filename string) string {
	args := m.Called(kind, filename)
	return args.String(0)
}

func (m *MockArtifactStorage) Read(ctx context.Context, kind domain.ArtifactKind, filename string) ([]byte, error) {
	args := m.Called(ctx, kind, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArtifactStorage) Exists(ctx context.Context, kind domain.ArtifactKind, filename string) (bool, error) {
	args := m.Called(ctx, kind, filename)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtifactStorage) Delete(ctx context.Context, kind domain.ArtifactKind, filename string) error {
	args := m.Called(ctx, kind, filename)
	return args.Error(0)
}
