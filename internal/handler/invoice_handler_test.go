package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fattura/internal/domain"
	"fattura/internal/handler"
	"fattura/mocks"
)

func invoiceRequest(method, path string, body []byte) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body != nil {
		c.Request, _ = http.NewRequest(method, path, bytes.NewBuffer(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request, _ = http.NewRequest(method, path, nil)
	}
	return w, c
}

func TestInvoiceHandler_List(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	recs := []domain.InvoiceRecord{
		{ID: uuid.New(), CanonicalInvoice: domain.CanonicalInvoice{Number: "001"}, Status: domain.StatusNotPrinted},
	}
	svc.On("List", mock.Anything, 0, 50).Return(recs, 1, nil)

	w, c := invoiceRequest(http.MethodGet, "/api/v1/invoices", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)
}

func TestInvoiceHandler_List_ClampsPagination(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	svc.On("List", mock.Anything, 0, 500).Return([]domain.InvoiceRecord{}, 0, nil)

	w, c := invoiceRequest(http.MethodGet, "/api/v1/invoices?offset=-5&limit=9999", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestInvoiceHandler_GetByID_NotFound(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	id := uuid.New()
	svc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	w, c := invoiceRequest(http.MethodGet, "/api/v1/invoices/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandler_GetByID_InvalidID(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	w, c := invoiceRequest(http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_ID", resp.Error.Code)
}

func TestInvoiceHandler_Update(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	id := uuid.New()
	updated := &domain.InvoiceRecord{ID: id, Status: domain.StatusPrinted}
	svc.On("Update", mock.Anything, id, mock.MatchedBy(func(u domain.InvoiceUpdate) bool {
		return u.Status != nil && *u.Status == domain.StatusPrinted && u.Notes == nil
	})).Return(updated, nil)

	body := []byte(`{"status":"printed"}`)
	w, c := invoiceRequest(http.MethodPatch, "/api/v1/invoices/"+id.String(), body)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestInvoiceHandler_Update_InvalidStatus(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	id := uuid.New()
	svc.On("Update", mock.Anything, id, mock.Anything).Return(nil, domain.ErrInvalidStatus)

	body := []byte(`{"status":"archived"}`)
	w, c := invoiceRequest(http.MethodPatch, "/api/v1/invoices/"+id.String(), body)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Update(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_STATUS", resp.Error.Code)
}

func TestInvoiceHandler_Delete(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(nil)

	w, c := invoiceRequest(http.MethodDelete, "/api/v1/invoices/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestInvoiceHandler_Artifact(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	id := uuid.New()
	svc.On("Artifact", mock.Anything, id, domain.ArtifactPDF).
		Return([]byte("%PDF-1.4"), "001_20240115.pdf", nil)

	w, c := invoiceRequest(http.MethodGet, "/api/v1/invoices/"+id.String()+"/artifacts/pdf", nil)
	c.Params = gin.Params{
		{Key: "id", Value: id.String()},
		{Key: "kind", Value: "pdf"},
	}
	h.Artifact(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "001_20240115.pdf")
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}

func TestInvoiceHandler_Export(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc)

	svc.On("ListAll", mock.Anything).Return([]domain.InvoiceRecord{
		{ID: uuid.New(), CanonicalInvoice: domain.CanonicalInvoice{Number: "001", Date: "2024-01-15"}},
	}, nil)

	w, c := invoiceRequest(http.MethodGet, "/api/v1/invoices/export", nil)
	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestMapDomainError_DuplicateConflict(t *testing.T) {
	status, code, _ := handler.MapDomainError(&domain.DuplicateInvoiceError{
		Number: "001", Date: "2024-01-15", ExistingID: uuid.New().String(),
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.CodeDuplicateInvoice, code)
}
