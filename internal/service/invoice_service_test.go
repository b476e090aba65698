package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fattura/internal/domain"
	"fattura/internal/service"
	"fattura/mocks"
)

func TestInvoiceService_List_NormalizesLegacyStatus(t *testing.T) {
	recs := []domain.InvoiceRecord{
		{ID: uuid.New(), Status: domain.InvoiceStatus("paid")},
		{ID: uuid.New(), Status: domain.InvoiceStatus("received")},
		{ID: uuid.New(), Status: domain.StatusPrinted},
	}
	repo := new(mocks.MockInvoiceRepo)
	repo.On("List", mock.Anything, 0, 50).Return(recs, 3, nil)

	svc := service.NewInvoiceService(repo, new(mocks.MockArtifactStorage), zerolog.Nop())
	got, total, err := svc.List(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, domain.StatusPrinted, got[0].Status, "paid maps to printed")
	assert.Equal(t, domain.StatusNotPrinted, got[1].Status, "received maps to not_printed")
	assert.Equal(t, domain.StatusPrinted, got[2].Status)
}

func TestInvoiceService_Update_RejectsInvalidStatus(t *testing.T) {
	repo := new(mocks.MockInvoiceRepo)
	svc := service.NewInvoiceService(repo, new(mocks.MockArtifactStorage), zerolog.Nop())

	bad := domain.InvoiceStatus("archived")
	_, err := svc.Update(context.Background(), uuid.New(), domain.InvoiceUpdate{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	repo.AssertNotCalled(t, "Update")
}

func TestInvoiceService_Update_PartialFields(t *testing.T) {
	id := uuid.New()
	marked := true
	updated := &domain.InvoiceRecord{ID: id, Status: domain.StatusNotPrinted, Marked: true}

	repo := new(mocks.MockInvoiceRepo)
	repo.On("Update", mock.Anything, id, mock.MatchedBy(func(u domain.InvoiceUpdate) bool {
		return u.Status == nil && u.Marked != nil && *u.Marked
	})).Return(updated, nil)

	svc := service.NewInvoiceService(repo, new(mocks.MockArtifactStorage), zerolog.Nop())
	got, err := svc.Update(context.Background(), id, domain.InvoiceUpdate{Marked: &marked})
	require.NoError(t, err)
	assert.True(t, got.Marked)
	repo.AssertExpectations(t)
}

func TestInvoiceService_Delete_RemovesArtifactTriple(t *testing.T) {
	id := uuid.New()
	rec := &domain.InvoiceRecord{
		ID:               id,
		CanonicalInvoice: domain.CanonicalInvoice{Number: "001", Date: "2024-01-15"},
	}

	repo := new(mocks.MockInvoiceRepo)
	repo.On("GetByID", mock.Anything, id).Return(rec, nil)
	repo.On("Delete", mock.Anything, id).Return(nil)

	storage := new(mocks.MockArtifactStorage)
	storage.On("Delete", mock.Anything, domain.ArtifactXML, "001_20240115.xml").Return(nil)
	storage.On("Delete", mock.Anything, domain.ArtifactHTML, "001_20240115.html").Return(nil)
	storage.On("Delete", mock.Anything, domain.ArtifactPDF, "001_20240115.pdf").Return(nil)

	svc := service.NewInvoiceService(repo, storage, zerolog.Nop())
	require.NoError(t, svc.Delete(context.Background(), id))

	repo.AssertExpectations(t)
	storage.AssertExpectations(t)
}

func TestInvoiceService_Delete_MissingRecord(t *testing.T) {
	repo := new(mocks.MockInvoiceRepo)
	repo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	svc := service.NewInvoiceService(repo, new(mocks.MockArtifactStorage), zerolog.Nop())
	err := svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvoiceService_Artifact(t *testing.T) {
	id := uuid.New()
	rec := &domain.InvoiceRecord{
		ID:               id,
		CanonicalInvoice: domain.CanonicalInvoice{Number: "INV-7", Date: "2024-02-02"},
	}

	repo := new(mocks.MockInvoiceRepo)
	repo.On("GetByID", mock.Anything, id).Return(rec, nil)

	storage := new(mocks.MockArtifactStorage)
	storage.On("Read", mock.Anything, domain.ArtifactPDF, "INV_7_20240202.pdf").Return([]byte("%PDF"), nil)

	svc := service.NewInvoiceService(repo, storage, zerolog.Nop())
	data, filename, err := svc.Artifact(context.Background(), id, domain.ArtifactPDF)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)
	assert.Equal(t, "INV_7_20240202.pdf", filename)
}

func TestInvoiceService_Artifact_UnknownKind(t *testing.T) {
	svc := service.NewInvoiceService(new(mocks.MockInvoiceRepo), new(mocks.MockArtifactStorage), zerolog.Nop())
	_, _, err := svc.Artifact(context.Background(), uuid.New(), domain.ArtifactKind("docx"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
