package service

import (
	"context"
	"fmt"

	"fattura/internal/domain"
	"fattura/internal/port"
)

// FindDuplicate returns the first existing record sharing the candidate's
// business key (number + date + VAT-or-fiscal-code), or nil. The OR on the
// supplier identity fields is deliberate: it tolerates records where only one
// of VAT/fiscal code was populated on a prior import.
func FindDuplicate(candidate *domain.CanonicalInvoice, existing []domain.InvoiceRecord) *domain.InvoiceRecord {
	for i := range existing {
		if candidate.SameBusinessKey(&existing[i].CanonicalInvoice) {
			return &existing[i]
		}
	}
	return nil
}

// DuplicateDetector checks parsed invoices against the record store.
type DuplicateDetector struct {
	repo port.InvoiceRepository
}

// NewDuplicateDetector creates a detector backed by the given repository.
func NewDuplicateDetector(repo port.InvoiceRepository) *DuplicateDetector {
	return &DuplicateDetector{repo: repo}
}

// Check returns a *domain.DuplicateInvoiceError if the candidate's business
// key is already present in the store.
func (d *DuplicateDetector) Check(ctx context.Context, candidate *domain.CanonicalInvoice) error {
	existing, err := d.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading records for duplicate check: %v", domain.ErrPersistenceFailed, err)
	}
	if match := FindDuplicate(candidate, existing); match != nil {
		return &domain.DuplicateInvoiceError{
			Number:             candidate.Number,
			Date:               candidate.Date,
			SupplierVAT:        candidate.SupplierVAT,
			SupplierFiscalCode: candidate.SupplierFiscalCode,
			ExistingID:         match.ID.String(),
		}
	}
	return nil
}
