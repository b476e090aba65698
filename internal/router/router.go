package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fattura/internal/config"
	"fattura/internal/handler"
	"fattura/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	log zerolog.Logger,
	uploadH *handler.UploadHandler,
	invoiceH *handler.InvoiceHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Upload routes
	uploads := v1.Group("/uploads")
	uploads.POST("", uploadH.Submit)
	uploads.GET("/:id", uploadH.Status)
	uploads.GET("/:id/events", uploadH.Events)

	// Invoice routes
	invoices := v1.Group("/invoices")
	invoices.GET("", invoiceH.List)
	invoices.GET("/export", invoiceH.Export)
	invoices.GET("/:id", invoiceH.GetByID)
	invoices.PATCH("/:id", invoiceH.Update)
	invoices.DELETE("/:id", invoiceH.Delete)
	invoices.GET("/:id/artifacts/:kind", invoiceH.Artifact)

	return r
}
