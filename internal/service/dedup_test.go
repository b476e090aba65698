package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fattura/internal/domain"
	"fattura/internal/service"
	"fattura/mocks"
)

func record(number, date, vat, cf string) domain.InvoiceRecord {
	return domain.InvoiceRecord{
		ID: uuid.New(),
		CanonicalInvoice: domain.CanonicalInvoice{
			Number:             number,
			Date:               date,
			SupplierVAT:        vat,
			SupplierFiscalCode: cf,
		},
	}
}

func TestFindDuplicate(t *testing.T) {
	existing := []domain.InvoiceRecord{
		record("001", "2024-01-15", "IT01234567890", "RSSMRA80A01H501U"),
		record("002", "2024-01-16", "", "BNCLRA75B02F205X"),
	}

	cases := []struct {
		name      string
		candidate domain.CanonicalInvoice
		wantHit   bool
	}{
		{
			name:      "vat match",
			candidate: domain.CanonicalInvoice{Number: "001", Date: "2024-01-15", SupplierVAT: "IT01234567890"},
			wantHit:   true,
		},
		{
			name:      "fiscal code match when vat absent",
			candidate: domain.CanonicalInvoice{Number: "002", Date: "2024-01-16", SupplierFiscalCode: "BNCLRA75B02F205X"},
			wantHit:   true,
		},
		{
			name:      "same number different date",
			candidate: domain.CanonicalInvoice{Number: "001", Date: "2024-02-15", SupplierVAT: "IT01234567890"},
			wantHit:   false,
		},
		{
			name:      "same key different supplier",
			candidate: domain.CanonicalInvoice{Number: "001", Date: "2024-01-15", SupplierVAT: "IT00000000000"},
			wantHit:   false,
		},
		{
			name:      "empty identity fields never match",
			candidate: domain.CanonicalInvoice{Number: "001", Date: "2024-01-15"},
			wantHit:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.FindDuplicate(&tc.candidate, existing)
			if tc.wantHit {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestDuplicateDetector_Check(t *testing.T) {
	stored := record("010", "2024-03-01", "IT01234567890", "")
	repo := new(mocks.MockInvoiceRepo)
	repo.On("GetAll", mock.Anything).Return([]domain.InvoiceRecord{stored}, nil)

	det := service.NewDuplicateDetector(repo)

	err := det.Check(context.Background(), &domain.CanonicalInvoice{
		Number: "010", Date: "2024-03-01", SupplierVAT: "IT01234567890",
	})
	var dup *domain.DuplicateInvoiceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, stored.ID.String(), dup.ExistingID)
	assert.Equal(t, domain.CodeDuplicateInvoice, domain.ErrorCode(err))

	err = det.Check(context.Background(), &domain.CanonicalInvoice{
		Number: "011", Date: "2024-03-01", SupplierVAT: "IT01234567890",
	})
	assert.NoError(t, err)
}

func TestDuplicateDetector_RepoFailure(t *testing.T) {
	repo := new(mocks.MockInvoiceRepo)
	repo.On("GetAll", mock.Anything).Return(nil, errors.New("connection refused"))

	det := service.NewDuplicateDetector(repo)
	err := det.Check(context.Background(), &domain.CanonicalInvoice{Number: "1", Date: "2024-01-01"})
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
}
