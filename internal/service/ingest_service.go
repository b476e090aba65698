package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fattura/internal/config"
	"fattura/internal/domain"
	"fattura/internal/extractor"
	"fattura/internal/fatturapa"
	"fattura/internal/port"
	"fattura/internal/progress"
	"fattura/internal/render"
)

// IngestService drives the end-to-end ingestion pipeline: extraction,
// parsing, duplicate check, artifact writes and record creation, per file,
// with batch fan-out and live progress reporting.
type IngestService interface {
	// SubmitBatch validates the batch synchronously, registers a job and
	// starts processing in the background. It returns the job identifier.
	SubmitBatch(ctx context.Context, files []domain.RawUpload) (uuid.UUID, error)
	// Wait blocks until every in-flight batch has finished. Used on shutdown.
	Wait()
}

type ingestService struct {
	repo    port.InvoiceRepository
	storage port.ArtifactStorage
	pdf     port.PDFRenderer
	dedup   *DuplicateDetector
	broker  *progress.Broker
	cfg     config.IngestConfig
	log     zerolog.Logger
	wg      sync.WaitGroup

	// pending holds the business keys of files between their duplicate check
	// and the creation of their record. The store check alone cannot see a
	// sibling file that passed the check but has not reached Create yet; the
	// reservation closes that window.
	keyMu   sync.Mutex
	pending []domain.CanonicalInvoice
}

// NewIngestService creates the ingestion orchestrator.
func NewIngestService(
	repo port.InvoiceRepository,
	storage port.ArtifactStorage,
	pdf port.PDFRenderer,
	broker *progress.Broker,
	cfg config.IngestConfig,
	log zerolog.Logger,
) IngestService {
	return &ingestService{
		repo:    repo,
		storage: storage,
		pdf:     pdf,
		dedup:   NewDuplicateDetector(repo),
		broker:  broker,
		cfg:     cfg,
		log:     log.With().Str("component", "ingest").Logger(),
	}
}

func (s *ingestService) SubmitBatch(_ context.Context, files []domain.RawUpload) (uuid.UUID, error) {
	if len(files) == 0 {
		return uuid.Nil, domain.ErrNoFiles
	}
	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	for _, f := range files {
		if int64(len(f.Data)) > maxBytes {
			return uuid.Nil, fmt.Errorf("%w: %s", domain.ErrFileTooLarge, f.Filename)
		}
		if f.Extension != domain.UploadXML && f.Extension != domain.UploadP7M {
			return uuid.Nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, f.Filename)
		}
	}

	jobID := uuid.New()
	s.broker.Register(domain.UploadSnapshot{
		JobID:  jobID,
		Total:  len(files),
		Status: domain.JobPreparing,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Processing is decoupled from the HTTP request context so an early
		// client disconnect never aborts the batch.
		s.processBatch(context.Background(), jobID, files)
	}()

	return jobID, nil
}

func (s *ingestService) Wait() { s.wg.Wait() }

// batchState accumulates per-file outcomes. File pipelines complete
// concurrently, so every mutation happens under the mutex.
type batchState struct {
	mu      sync.Mutex
	jobID   uuid.UUID
	total   int
	done    int
	failed  int
	results []domain.InvoiceRecord
	errors  []domain.FileError
}

func (b *batchState) snapshot(status domain.JobStatus, file string, stage domain.FileStage) domain.UploadSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.UploadSnapshot{
		JobID:       b.jobID,
		Total:       b.total,
		Completed:   b.done,
		Failed:      b.failed,
		Status:      status,
		CurrentFile: file,
		Stage:       stage,
	}
}

func (s *ingestService) processBatch(ctx context.Context, jobID uuid.UUID, files []domain.RawUpload) {
	state := &batchState{jobID: jobID, total: len(files)}
	s.broker.Publish(state.snapshot(domain.JobProcessing, "", ""))

	concurrency := s.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i := range files {
		file := files[i]
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := s.processFile(ctx, jobID, state, file)

			state.mu.Lock()
			if err != nil {
				state.failed++
				state.errors = append(state.errors, domain.NewFileError(file.Filename, err))
			} else {
				state.results = append(state.results, *rec)
			}
			state.done++
			state.mu.Unlock()

			if err != nil {
				s.log.Warn().Str("job_id", jobID.String()).Str("file", file.Filename).Err(err).Msg("file failed")
				s.broker.Publish(state.snapshot(domain.JobProcessing, file.Filename, domain.StageFailed))
			} else {
				s.broker.Publish(state.snapshot(domain.JobProcessing, file.Filename, domain.StageDone))
			}
		}()
	}
	wg.Wait()

	// completed if at least one file succeeded; failed only when every file
	// in the batch failed.
	status := domain.JobCompleted
	if state.failed == state.total {
		status = domain.JobFailed
	}
	final := state.snapshot(status, "", "")
	state.mu.Lock()
	final.Results = state.results
	final.Errors = state.errors
	state.mu.Unlock()

	s.log.Info().
		Str("job_id", jobID.String()).
		Int("total", final.Total).
		Int("failed", final.Failed).
		Str("status", string(status)).
		Msg("batch finished")
	s.broker.Publish(final)
}

// processFile runs one file through the linear pipeline. Any stage error is
// returned and isolated at the caller; there is no retry within a file.
func (s *ingestService) processFile(ctx context.Context, jobID uuid.UUID, state *batchState, file domain.RawUpload) (*domain.InvoiceRecord, error) {
	stage := func(st domain.FileStage) {
		s.broker.Publish(state.snapshot(domain.JobProcessing, file.Filename, st))
	}

	stage(domain.StageExtracting)
	xmlText, err := extractor.Extract(file.Data, file.Extension)
	if err != nil {
		return nil, err
	}

	stage(domain.StageParsing)
	inv, err := fatturapa.Parse(xmlText)
	if err != nil {
		return nil, err
	}

	stage(domain.StageDedupChecking)
	if err := s.reserveKey(inv); err != nil {
		return nil, err
	}
	// Held until this file either created its record or failed. Once the
	// record exists the store check covers later submissions.
	defer s.releaseKey(inv)
	if err := s.dedup.Check(ctx, inv); err != nil {
		return nil, err
	}

	stage(domain.StageWritingArtifacts)
	base := fatturapa.BaseName(inv.Number, inv.Date)
	xmlPath, err := s.writeIfAbsent(ctx, domain.ArtifactXML, base, []byte(xmlText))
	if err != nil {
		return nil, err
	}

	html, err := render.RenderHTML(inv)
	if err != nil {
		return nil, err
	}
	htmlPath, err := s.writeIfAbsent(ctx, domain.ArtifactHTML, base, []byte(html))
	if err != nil {
		return nil, err
	}

	pdfPath, err := s.writePDFIfAbsent(ctx, base, html)
	if err != nil {
		return nil, err
	}

	stage(domain.StageCreatingRecord)
	rec := &domain.InvoiceRecord{
		ID:               uuid.New(),
		CanonicalInvoice: *inv,
		Status:           domain.StatusNotPrinted,
		Tags:             []string{},
		XMLPath:          xmlPath,
		HTMLPath:         htmlPath,
		PDFPath:          pdfPath,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: creating invoice record: %v", domain.ErrPersistenceFailed, err)
	}

	s.log.Info().
		Str("job_id", jobID.String()).
		Str("file", file.Filename).
		Str("invoice", inv.Number).
		Str("base_name", base).
		Msg("invoice ingested")
	return rec, nil
}

// reserveKey claims the invoice's business key for the duration of its
// pipeline tail. A sibling file carrying the same key is rejected as a
// duplicate even though neither record exists in the store yet.
func (s *ingestService) reserveKey(inv *domain.CanonicalInvoice) error {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	for i := range s.pending {
		if inv.SameBusinessKey(&s.pending[i]) {
			return &domain.DuplicateInvoiceError{
				Number:             inv.Number,
				Date:               inv.Date,
				SupplierVAT:        inv.SupplierVAT,
				SupplierFiscalCode: inv.SupplierFiscalCode,
			}
		}
	}
	s.pending = append(s.pending, *inv)
	return nil
}

func (s *ingestService) releaseKey(inv *domain.CanonicalInvoice) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	for i := range s.pending {
		p := &s.pending[i]
		if p.Number == inv.Number && p.Date == inv.Date &&
			p.SupplierVAT == inv.SupplierVAT && p.SupplierFiscalCode == inv.SupplierFiscalCode {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// writeIfAbsent writes one artifact under its stable name unless a previous
// run already produced it. Each member of the triple is independently
// idempotent: a retry regenerates only what is missing.
func (s *ingestService) writeIfAbsent(ctx context.Context, kind domain.ArtifactKind, base string, data []byte) (string, error) {
	filename := base + kind.Ext()
	exists, err := s.storage.Exists(ctx, kind, filename)
	if err != nil {
		return "", fmt.Errorf("%w: checking %s artifact: %v", domain.ErrPersistenceFailed, kind, err)
	}
	if exists {
		return s.storage.Path(kind, filename), nil
	}
	path, err := s.storage.Write(ctx, kind, filename, data)
	if err != nil {
		return "", fmt.Errorf("%w: writing %s artifact: %v", domain.ErrPersistenceFailed, kind, err)
	}
	return path, nil
}

// writePDFIfAbsent skips the expensive headless render entirely when the PDF
// already exists.
func (s *ingestService) writePDFIfAbsent(ctx context.Context, base, html string) (string, error) {
	filename := base + domain.ArtifactPDF.Ext()
	exists, err := s.storage.Exists(ctx, domain.ArtifactPDF, filename)
	if err != nil {
		return "", fmt.Errorf("%w: checking pdf artifact: %v", domain.ErrPersistenceFailed, err)
	}
	if exists {
		return s.storage.Path(domain.ArtifactPDF, filename), nil
	}
	pdf, err := s.pdf.RenderPDF(ctx, html)
	if err != nil {
		return "", err
	}
	path, err := s.storage.Write(ctx, domain.ArtifactPDF, filename, pdf)
	if err != nil {
		return "", fmt.Errorf("%w: writing pdf artifact: %v", domain.ErrPersistenceFailed, err)
	}
	return path, nil
}
