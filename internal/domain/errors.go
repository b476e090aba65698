package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrJobNotFound         = errors.New("upload job not found")
	ErrNoFiles             = errors.New("no files submitted")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidStatus       = errors.New("invalid invoice status")
	ErrExtractionFailed    = errors.New("signed envelope could not be unwrapped")
	ErrParseFailed         = errors.New("document not recognizable as FatturaPA")
	ErrRenderFailed        = errors.New("document rendering failed")
	ErrPersistenceFailed   = errors.New("artifact or record write failed")
)

// Stable error codes surfaced to API clients. CodeDuplicateInvoice is a
// contract: callers distinguish duplicates by this code, never by message.
const (
	CodeDuplicateInvoice = "DUPLICATE_INVOICE"
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeParseFailed      = "PARSE_FAILED"
	CodeRenderFailed     = "RENDER_FAILED"
	CodePersistence      = "PERSISTENCE_FAILED"
	CodeProcessingFailed = "PROCESSING_FAILED"
)

// DuplicateInvoiceError reports a business-key collision against an already
// stored invoice. It carries the identifying fields of the conflicting record.
type DuplicateInvoiceError struct {
	Number             string
	Date               string
	SupplierVAT        string
	SupplierFiscalCode string
	ExistingID         string
}

func (e *DuplicateInvoiceError) Error() string {
	if e.ExistingID == "" {
		return fmt.Sprintf("invoice %s of %s already present in this batch", e.Number, e.Date)
	}
	return fmt.Sprintf("invoice %s of %s already imported (record %s)", e.Number, e.Date, e.ExistingID)
}

// ErrorCode maps a pipeline error onto its stable code.
func ErrorCode(err error) string {
	var dup *DuplicateInvoiceError
	switch {
	case errors.As(err, &dup):
		return CodeDuplicateInvoice
	case errors.Is(err, ErrExtractionFailed):
		return CodeExtractionFailed
	case errors.Is(err, ErrParseFailed):
		return CodeParseFailed
	case errors.Is(err, ErrRenderFailed):
		return CodeRenderFailed
	case errors.Is(err, ErrPersistenceFailed):
		return CodePersistence
	default:
		return CodeProcessingFailed
	}
}

// FileError is the per-file failure entry accumulated at batch level.
type FileError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
}

// NewFileError wraps a pipeline error into a result entry for one file.
func NewFileError(filename string, err error) FileError {
	return FileError{Filename: filename, Error: err.Error(), Code: ErrorCode(err)}
}
