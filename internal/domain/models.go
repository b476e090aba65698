package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawUpload is a single uploaded file buffer. It is consumed by the ingestion
// pipeline and never persisted.
type RawUpload struct {
	Filename  string
	Data      []byte
	Extension UploadExtension
}

// Address is the structured postal address used for both invoice parties.
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Country    string `json:"country"`
}

// LineItem is one detail line of an invoice, in source document order.
// HasQuantity and HasExplicitTotal are presentation flags: in FatturaPA a zero
// often means "field omitted", so renderers blank the cell instead of printing 0.
type LineItem struct {
	Number           int             `json:"number"`
	Code             string          `json:"code"`
	Description      string          `json:"description"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	VATPercent       decimal.Decimal `json:"vat_percent"`
	Total            decimal.Decimal `json:"total"`
	HasQuantity      bool            `json:"has_quantity"`
	HasExplicitTotal bool            `json:"has_explicit_total"`
}

// PaymentDetail is one payment installment.
type PaymentDetail struct {
	Method  string          `json:"method"`
	DueDate string          `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

// CanonicalInvoice is the schema-normalized, namespace-agnostic representation
// produced by the FatturaPA parser. Number and Date are the required business
// key components; together with the supplier VAT or fiscal code they form the
// natural deduplication key.
type CanonicalInvoice struct {
	Number       string `json:"number"`
	Date         string `json:"date"` // ISO date as stated in the source XML
	DocumentType string `json:"document_type"`
	Currency     string `json:"currency"`

	SupplierName       string  `json:"supplier_name"`
	SupplierVAT        string  `json:"supplier_vat"`
	SupplierFiscalCode string  `json:"supplier_fiscal_code"`
	SupplierAddress    Address `json:"supplier_address"`

	CustomerName    string  `json:"customer_name"`
	CustomerVAT     string  `json:"customer_vat"`
	CustomerAddress Address `json:"customer_address"`

	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`

	// PaymentMethod and PaymentDueDate mirror the first entry of
	// PaymentDetails for simple callers.
	PaymentMethod  string          `json:"payment_method"`
	PaymentDueDate string          `json:"payment_due_date"`
	PaymentDetails []PaymentDetail `json:"payment_details"`

	LineItems []LineItem `json:"line_items"`
}

// SameBusinessKey reports whether two invoices share the deduplication key:
// equal number, equal date, and a match on either supplier identity field.
// The OR on VAT/fiscal code tolerates records where only one was populated.
func (inv *CanonicalInvoice) SameBusinessKey(other *CanonicalInvoice) bool {
	if inv.Number != other.Number || inv.Date != other.Date {
		return false
	}
	if inv.SupplierVAT != "" && inv.SupplierVAT == other.SupplierVAT {
		return true
	}
	if inv.SupplierFiscalCode != "" && inv.SupplierFiscalCode == other.SupplierFiscalCode {
		return true
	}
	return false
}

// InvoiceRecord is the persisted invoice entity: the canonical fields plus
// lifecycle state and the artifact triple paths.
type InvoiceRecord struct {
	ID uuid.UUID `json:"id"`

	CanonicalInvoice

	Status InvoiceStatus `json:"status"`
	Marked bool          `json:"marked"`
	Notes  string        `json:"notes"`
	Tags   []string      `json:"tags"`

	XMLPath  string `json:"xml_path"`
	HTMLPath string `json:"html_path"`
	PDFPath  string `json:"pdf_path"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceUpdate holds the partial fields of an invoice record a caller may
// mutate. Nil pointers leave the stored value untouched.
type InvoiceUpdate struct {
	Status *InvoiceStatus `json:"status,omitempty"`
	Marked *bool          `json:"marked,omitempty"`
	Notes  *string        `json:"notes,omitempty"`
	Tags   *[]string      `json:"tags,omitempty"`
}

// UploadSnapshot is one progress observation of an ingestion batch. The
// terminal snapshot carries the merged results and errors.
type UploadSnapshot struct {
	JobID       uuid.UUID       `json:"job_id"`
	Total       int             `json:"total"`
	Completed   int             `json:"completed"`
	Failed      int             `json:"failed"`
	Status      JobStatus       `json:"status"`
	CurrentFile string          `json:"current_file,omitempty"`
	Stage       FileStage       `json:"stage,omitempty"`
	Results     []InvoiceRecord `json:"results,omitempty"`
	Errors      []FileError     `json:"errors,omitempty"`
}
