package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fattura/internal/domain"
)

// MockIngestService is a mock implementation of service.IngestService.
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) SubmitBatch(ctx context.Context, files []domain.RawUpload) (uuid.UUID, error) {
	args := m.Called(ctx, files)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockIngestService) Wait() {
	m.Called()
}
