package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fattura/internal/domain"
	"fattura/internal/progress"
	"fattura/internal/service"
)

// UploadHandler handles invoice batch upload and progress endpoints.
type UploadHandler struct {
	ingest service.IngestService
	broker *progress.Broker
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(ingest service.IngestService, broker *progress.Broker) *UploadHandler {
	return &UploadHandler{ingest: ingest, broker: broker}
}

// Submit handles POST /api/v1/uploads. It accepts a multipart batch under the
// "files" field and responds 202 with the job id before processing finishes.
func (h *UploadHandler) Submit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_MULTIPART", "request is not valid multipart form data")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		HandleError(c, domain.ErrNoFiles)
		return
	}

	uploads := make([]domain.RawUpload, 0, len(headers))
	for _, header := range headers {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
		kind, ok := domain.AllowedUploadExtensions[ext]
		if !ok {
			HandleError(c, domain.ErrUnsupportedFileType)
			return
		}

		f, err := header.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file "+header.Filename)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file "+header.Filename)
			return
		}

		uploads = append(uploads, domain.RawUpload{
			Filename:  header.Filename,
			Data:      data,
			Extension: kind,
		})
	}

	jobID, err := h.ingest.SubmitBatch(c.Request.Context(), uploads)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, gin.H{"job_id": jobID})
}

// Status handles GET /api/v1/uploads/:id. It returns the current snapshot of
// the job, including results and errors once terminal.
func (h *UploadHandler) Status(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job id")
		return
	}

	snap, err := h.broker.Snapshot(jobID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// Events handles GET /api/v1/uploads/:id/events. It streams progress
// snapshots as Server-Sent Events until the job reaches a terminal state or
// the client disconnects.
func (h *UploadHandler) Events(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job id")
		return
	}

	ch, cancel, err := h.broker.Subscribe(jobID)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("progress", snap)
			return !snap.Status.Terminal()
		}
	})
}
