package port

import (
	"context"

	"github.com/google/uuid"

	"fattura/internal/domain"
)

// InvoiceRepository abstracts the invoice record store. The ingestion
// pipeline depends only on Create and GetAll; it does not assume transactional
// semantics beyond read-your-writes within one process.
type InvoiceRepository interface {
	Create(ctx context.Context, rec *domain.InvoiceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	// GetAll returns every record, newest-created first.
	GetAll(ctx context.Context) ([]domain.InvoiceRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.InvoiceRecord, int, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.InvoiceUpdate) (*domain.InvoiceRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
