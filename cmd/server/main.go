package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fattura/internal/config"
	"fattura/internal/handler"
	"fattura/internal/port"
	"fattura/internal/progress"
	"fattura/internal/render"
	"fattura/internal/repository/postgres"
	"fattura/internal/router"
	"fattura/internal/service"
	fsstorage "fattura/internal/storage/fs"
	s3storage "fattura/internal/storage/s3"
	"fattura/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)

	// Initialize artifact storage
	var storage port.ArtifactStorage
	switch cfg.Storage.Backend {
	case "s3":
		storage, err = s3storage.NewStore(&cfg.Storage.S3)
	default:
		storage, err = fsstorage.NewStore(cfg.Storage.Root)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize artifact storage: %w", err)
	}

	// Initialize renderer and progress broker
	renderer := render.NewChromeRenderer(cfg.Render.ExecPath, cfg.Render.Timeout, log)
	defer renderer.Close()
	broker := progress.NewBroker(cfg.Ingest.JobRetention, log)

	// Initialize services
	ingestSvc := service.NewIngestService(invoiceRepo, storage, renderer, broker, cfg.Ingest, log)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, storage, log)

	// Initialize handlers
	uploadH := handler.NewUploadHandler(ingestSvc, broker)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, log, uploadH, invoiceH, healthH)

	srv := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays at the configured value; the default of zero
		// keeps long-lived SSE streams open.
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	// Let in-flight ingestion batches finish before letting deferred
	// cleanups tear down the renderer and database.
	ingestSvc.Wait()
	return nil
}
