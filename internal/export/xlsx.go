// Package export produces spreadsheet exports of stored invoice records.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fattura/internal/domain"
)

const sheetName = "Fatture"

// columns defines the export header row.
var columns = []string{
	"Numero",
	"Data",
	"Tipo Documento",
	"Valuta",
	"Fornitore",
	"Partita IVA Fornitore",
	"Codice Fiscale Fornitore",
	"Cliente",
	"Partita IVA Cliente",
	"Imponibile",
	"Imposta",
	"Totale",
	"Modalità Pagamento",
	"Scadenza",
	"Numero Righe",
	"Stato",
	"Contrassegnata",
	"Note",
	"Tag",
	"Importata Il",
}

// WriteWorkbook writes the records as a single-sheet xlsx workbook to w.
// Rows follow the input order, one invoice per row.
func WriteWorkbook(w io.Writer, recs []domain.InvoiceRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		row := recordToRow(&recs[i])
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func recordToRow(rec *domain.InvoiceRecord) []interface{} {
	return []interface{}{
		rec.Number,
		rec.Date,
		rec.DocumentType,
		rec.Currency,
		rec.SupplierName,
		rec.SupplierVAT,
		rec.SupplierFiscalCode,
		rec.CustomerName,
		rec.CustomerVAT,
		formatMoney(rec.TaxableAmount),
		formatMoney(rec.TaxAmount),
		formatMoney(rec.TotalAmount),
		rec.PaymentMethod,
		rec.PaymentDueDate,
		strconv.Itoa(len(rec.LineItems)),
		string(rec.Status),
		formatBool(rec.Marked),
		rec.Notes,
		strings.Join(rec.Tags, ", "),
		rec.CreatedAt.Format(time.RFC3339),
	}
}

func formatMoney(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func formatBool(v bool) string {
	if v {
		return "Sì"
	}
	return "No"
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition. Replaces
// non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_prefix}_{YYYY-MM-DD}.xlsx
func BuildFilename(prefix string) string {
	sanitized := SanitizeFilename(prefix)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.xlsx", sanitized, date)
}
