package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fattura/internal/domain"
	"fattura/internal/fatturapa"
	"fattura/internal/port"
)

// InvoiceService exposes the invoice record store to the API layer.
type InvoiceService interface {
	List(ctx context.Context, offset, limit int) ([]domain.InvoiceRecord, int, error)
	// ListAll returns every record, newest first. Used by the export endpoint.
	ListAll(ctx context.Context) ([]domain.InvoiceRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.InvoiceUpdate) (*domain.InvoiceRecord, error)
	// Delete removes the record together with its artifact triple.
	Delete(ctx context.Context, id uuid.UUID) error
	// Artifact returns the raw bytes of one stored artifact of the invoice.
	Artifact(ctx context.Context, id uuid.UUID, kind domain.ArtifactKind) ([]byte, string, error)
}

type invoiceService struct {
	repo    port.InvoiceRepository
	storage port.ArtifactStorage
	log     zerolog.Logger
}

// NewInvoiceService creates the invoice CRUD service.
func NewInvoiceService(repo port.InvoiceRepository, storage port.ArtifactStorage, log zerolog.Logger) InvoiceService {
	return &invoiceService{
		repo:    repo,
		storage: storage,
		log:     log.With().Str("component", "invoice_service").Logger(),
	}
}

func (s *invoiceService) List(ctx context.Context, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	recs, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	// Legacy statuses are normalized on the way out, never rewritten in place.
	for i := range recs {
		recs[i].Status = domain.NormalizeStatus(recs[i].Status)
	}
	return recs, total, nil
}

func (s *invoiceService) ListAll(ctx context.Context) ([]domain.InvoiceRecord, error) {
	recs, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Status = domain.NormalizeStatus(recs[i].Status)
	}
	return recs, nil
}

func (s *invoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.NormalizeStatus(rec.Status)
	return rec, nil
}

func (s *invoiceService) Update(ctx context.Context, id uuid.UUID, upd domain.InvoiceUpdate) (*domain.InvoiceRecord, error) {
	if upd.Status != nil && !domain.ValidStatus(*upd.Status) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *upd.Status)
	}
	rec, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.NormalizeStatus(rec.Status)
	return rec, nil
}

func (s *invoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// The record and its artifacts go together. Artifact removal is best
	// effort per kind: a missing file is not an error, a storage failure is.
	base := fatturapa.BaseName(rec.Number, rec.Date)
	for _, kind := range domain.ArtifactKinds {
		if err := s.storage.Delete(ctx, kind, base+kind.Ext()); err != nil {
			return fmt.Errorf("%w: deleting %s artifact: %v", domain.ErrPersistenceFailed, kind, err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("invoice_id", id.String()).Str("base_name", base).Msg("invoice deleted")
	return nil
}

func (s *invoiceService) Artifact(ctx context.Context, id uuid.UUID, kind domain.ArtifactKind) ([]byte, string, error) {
	if !kind.Valid() {
		return nil, "", fmt.Errorf("%w: unknown artifact kind %q", domain.ErrNotFound, kind)
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	filename := fatturapa.BaseName(rec.Number, rec.Date) + kind.Ext()
	data, err := s.storage.Read(ctx, kind, filename)
	if err != nil {
		return nil, "", err
	}
	return data, filename, nil
}
