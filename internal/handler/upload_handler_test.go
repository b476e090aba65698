package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fattura/internal/domain"
	"fattura/internal/handler"
	"fattura/internal/progress"
	"fattura/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func multipartBatch(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadHandler_Submit_Accepted(t *testing.T) {
	ingest := new(mocks.MockIngestService)
	broker := progress.NewBroker(time.Minute, zerolog.Nop())
	h := handler.NewUploadHandler(ingest, broker)

	jobID := uuid.New()
	ingest.On("SubmitBatch", mock.Anything, mock.MatchedBy(func(files []domain.RawUpload) bool {
		return len(files) == 2 &&
			files[0].Extension == domain.UploadXML &&
			files[1].Extension == domain.UploadP7M
	})).Return(jobID, nil)

	body, contentType := multipartBatch(t, map[string]string{
		"fattura.xml":     "<xml/>",
		"fattura.xml.p7m": "binary",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Submit(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, jobID.String(), data["job_id"])
	ingest.AssertExpectations(t)
}

func TestUploadHandler_Submit_UnsupportedExtension(t *testing.T) {
	ingest := new(mocks.MockIngestService)
	broker := progress.NewBroker(time.Minute, zerolog.Nop())
	h := handler.NewUploadHandler(ingest, broker)

	body, contentType := multipartBatch(t, map[string]string{"scan.pdf": "%PDF"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", resp.Error.Code)
	ingest.AssertNotCalled(t, "SubmitBatch")
}

func TestUploadHandler_Submit_NoFiles(t *testing.T) {
	ingest := new(mocks.MockIngestService)
	broker := progress.NewBroker(time.Minute, zerolog.Nop())
	h := handler.NewUploadHandler(ingest, broker)

	body, contentType := multipartBatch(t, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NO_FILES", resp.Error.Code)
}

func TestUploadHandler_Status(t *testing.T) {
	ingest := new(mocks.MockIngestService)
	broker := progress.NewBroker(time.Minute, zerolog.Nop())
	h := handler.NewUploadHandler(ingest, broker)

	jobID := uuid.New()
	broker.Register(domain.UploadSnapshot{JobID: jobID, Total: 2, Status: domain.JobProcessing})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/uploads/"+jobID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: jobID.String()}}

	h.Status(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, "processing", data["status"])
}

func TestUploadHandler_Status_UnknownJob(t *testing.T) {
	ingest := new(mocks.MockIngestService)
	broker := progress.NewBroker(time.Minute, zerolog.Nop())
	h := handler.NewUploadHandler(ingest, broker)

	id := uuid.New()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/uploads/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Status(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "JOB_NOT_FOUND", resp.Error.Code)
}

// closeNotifyRecorder adds the http.CloseNotifier method gin's Stream
// requires, which httptest.ResponseRecorder does not implement.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestUploadHandler_Events_StreamsUntilTerminal(t *testing.T) {
	ingest := new(mocks.MockIngestService)
	broker := progress.NewBroker(time.Minute, zerolog.Nop())
	h := handler.NewUploadHandler(ingest, broker)

	jobID := uuid.New()
	broker.Register(domain.UploadSnapshot{JobID: jobID, Total: 1, Status: domain.JobProcessing})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(&closeNotifyRecorder{w, make(chan bool, 1)})
		c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/uploads/"+jobID.String()+"/events", nil)
		c.Params = gin.Params{{Key: "id", Value: jobID.String()}}
		h.Events(c)
		done <- w
	}()

	// Let the subscriber attach, then finish the job.
	time.Sleep(50 * time.Millisecond)
	broker.Publish(domain.UploadSnapshot{JobID: jobID, Total: 1, Completed: 1, Status: domain.JobCompleted})

	select {
	case w := <-done:
		body := w.Body.String()
		assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
		assert.Contains(t, body, "event:progress")
		assert.Contains(t, body, `"status":"completed"`)
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not terminate")
	}
}
