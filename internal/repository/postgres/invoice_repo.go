package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"fattura/internal/domain"
	"fattura/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

// invoiceRow is the flat database shape of an invoice record. Nested
// structures (addresses, line items, payment installments, tags) are stored
// as jsonb.
type invoiceRow struct {
	ID                 uuid.UUID       `db:"id"`
	Number             string          `db:"number"`
	Date               string          `db:"date"`
	DocumentType       string          `db:"document_type"`
	Currency           string          `db:"currency"`
	SupplierName       string          `db:"supplier_name"`
	SupplierVAT        string          `db:"supplier_vat"`
	SupplierFiscalCode string          `db:"supplier_fiscal_code"`
	SupplierAddress    json.RawMessage `db:"supplier_address"`
	CustomerName       string          `db:"customer_name"`
	CustomerVAT        string          `db:"customer_vat"`
	CustomerAddress    json.RawMessage `db:"customer_address"`
	TaxableAmount      decimal.Decimal `db:"taxable_amount"`
	TaxAmount          decimal.Decimal `db:"tax_amount"`
	TotalAmount        decimal.Decimal `db:"total_amount"`
	PaymentMethod      string          `db:"payment_method"`
	PaymentDueDate     string          `db:"payment_due_date"`
	PaymentDetails     json.RawMessage `db:"payment_details"`
	LineItems          json.RawMessage `db:"line_items"`
	Status             string          `db:"status"`
	Marked             bool            `db:"marked"`
	Notes              string          `db:"notes"`
	Tags               json.RawMessage `db:"tags"`
	XMLPath            string          `db:"xml_path"`
	HTMLPath           string          `db:"html_path"`
	PDFPath            string          `db:"pdf_path"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func toRow(rec *domain.InvoiceRecord) (*invoiceRow, error) {
	supplierAddr, err := json.Marshal(rec.SupplierAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal supplier address: %w", err)
	}
	customerAddr, err := json.Marshal(rec.CustomerAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal customer address: %w", err)
	}
	payments, err := json.Marshal(emptyIfNilPayments(rec.PaymentDetails))
	if err != nil {
		return nil, fmt.Errorf("marshal payment details: %w", err)
	}
	items, err := json.Marshal(emptyIfNilItems(rec.LineItems))
	if err != nil {
		return nil, fmt.Errorf("marshal line items: %w", err)
	}
	tags, err := json.Marshal(emptyIfNilTags(rec.Tags))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return &invoiceRow{
		ID:                 rec.ID,
		Number:             rec.Number,
		Date:               rec.Date,
		DocumentType:       rec.DocumentType,
		Currency:           rec.Currency,
		SupplierName:       rec.SupplierName,
		SupplierVAT:        rec.SupplierVAT,
		SupplierFiscalCode: rec.SupplierFiscalCode,
		SupplierAddress:    supplierAddr,
		CustomerName:       rec.CustomerName,
		CustomerVAT:        rec.CustomerVAT,
		CustomerAddress:    customerAddr,
		TaxableAmount:      rec.TaxableAmount,
		TaxAmount:          rec.TaxAmount,
		TotalAmount:        rec.TotalAmount,
		PaymentMethod:      rec.PaymentMethod,
		PaymentDueDate:     rec.PaymentDueDate,
		PaymentDetails:     payments,
		LineItems:          items,
		Status:             string(rec.Status),
		Marked:             rec.Marked,
		Notes:              rec.Notes,
		Tags:               tags,
		XMLPath:            rec.XMLPath,
		HTMLPath:           rec.HTMLPath,
		PDFPath:            rec.PDFPath,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}, nil
}

func (row *invoiceRow) toDomain() (*domain.InvoiceRecord, error) {
	rec := &domain.InvoiceRecord{
		ID: row.ID,
		CanonicalInvoice: domain.CanonicalInvoice{
			Number:             row.Number,
			Date:               row.Date,
			DocumentType:       row.DocumentType,
			Currency:           row.Currency,
			SupplierName:       row.SupplierName,
			SupplierVAT:        row.SupplierVAT,
			SupplierFiscalCode: row.SupplierFiscalCode,
			CustomerName:       row.CustomerName,
			CustomerVAT:        row.CustomerVAT,
			TaxableAmount:      row.TaxableAmount,
			TaxAmount:          row.TaxAmount,
			TotalAmount:        row.TotalAmount,
			PaymentMethod:      row.PaymentMethod,
			PaymentDueDate:     row.PaymentDueDate,
		},
		Status:    domain.NormalizeStatus(domain.InvoiceStatus(row.Status)),
		Marked:    row.Marked,
		Notes:     row.Notes,
		XMLPath:   row.XMLPath,
		HTMLPath:  row.HTMLPath,
		PDFPath:   row.PDFPath,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal(row.SupplierAddress, &rec.SupplierAddress); err != nil {
		return nil, fmt.Errorf("unmarshal supplier address: %w", err)
	}
	if err := json.Unmarshal(row.CustomerAddress, &rec.CustomerAddress); err != nil {
		return nil, fmt.Errorf("unmarshal customer address: %w", err)
	}
	if err := json.Unmarshal(row.PaymentDetails, &rec.PaymentDetails); err != nil {
		return nil, fmt.Errorf("unmarshal payment details: %w", err)
	}
	if err := json.Unmarshal(row.LineItems, &rec.LineItems); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	if err := json.Unmarshal(row.Tags, &rec.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return rec, nil
}

func emptyIfNilPayments(v []domain.PaymentDetail) []domain.PaymentDetail {
	if v == nil {
		return []domain.PaymentDetail{}
	}
	return v
}

func emptyIfNilItems(v []domain.LineItem) []domain.LineItem {
	if v == nil {
		return []domain.LineItem{}
	}
	return v
}

func emptyIfNilTags(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

const invoiceColumns = `id, number, date, document_type, currency,
	supplier_name, supplier_vat, supplier_fiscal_code, supplier_address,
	customer_name, customer_vat, customer_address,
	taxable_amount, tax_amount, total_amount,
	payment_method, payment_due_date, payment_details, line_items,
	status, marked, notes, tags, xml_path, html_path, pdf_path,
	created_at, updated_at`

func (r *invoiceRepo) Create(ctx context.Context, rec *domain.InvoiceRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	row, err := toRow(rec)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}

	query := `INSERT INTO invoices (` + invoiceColumns + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12,
		$13, $14, $15,
		$16, $17, $18, $19,
		$20, $21, $22, $23, $24, $25, $26,
		$27, $28
	)`

	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.Number, row.Date, row.DocumentType, row.Currency,
		row.SupplierName, row.SupplierVAT, row.SupplierFiscalCode, row.SupplierAddress,
		row.CustomerName, row.CustomerVAT, row.CustomerAddress,
		row.TaxableAmount, row.TaxAmount, row.TotalAmount,
		row.PaymentMethod, row.PaymentDueDate, row.PaymentDetails, row.LineItems,
		row.Status, row.Marked, row.Notes, row.Tags, row.XMLPath, row.HTMLPath, row.PDFPath,
		row.CreatedAt, row.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: invoice %s", domain.ErrPersistenceFailed, rec.Number)
		}
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	var row invoiceRow
	err := r.db.GetContext(ctx, &row,
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return row.toDomain()
}

func (r *invoiceRepo) GetAll(ctx context.Context) ([]domain.InvoiceRecord, error) {
	var rows []invoiceRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetAll: %w", err)
	}
	return rowsToDomain(rows)
}

func (r *invoiceRepo) List(ctx context.Context, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM invoices")
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List count: %w", err)
	}

	var rows []invoiceRow
	err = r.db.SelectContext(ctx, &rows,
		"SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List: %w", err)
	}
	recs, err := rowsToDomain(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *invoiceRepo) Update(ctx context.Context, id uuid.UUID, upd domain.InvoiceUpdate) (*domain.InvoiceRecord, error) {
	sets := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Status != nil {
		sets = append(sets, "status = "+arg(string(*upd.Status)))
	}
	if upd.Marked != nil {
		sets = append(sets, "marked = "+arg(*upd.Marked))
	}
	if upd.Notes != nil {
		sets = append(sets, "notes = "+arg(*upd.Notes))
	}
	if upd.Tags != nil {
		tags, err := json.Marshal(emptyIfNilTags(*upd.Tags))
		if err != nil {
			return nil, fmt.Errorf("invoiceRepo.Update: marshal tags: %w", err)
		}
		sets = append(sets, "tags = "+arg(tags))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = "+arg(time.Now().UTC()))

	query := "UPDATE invoices SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(id)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func rowsToDomain(rows []invoiceRow) ([]domain.InvoiceRecord, error) {
	recs := make([]domain.InvoiceRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}
