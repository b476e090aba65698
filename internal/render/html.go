// Package render turns a canonical invoice into its human-readable artifacts:
// a styled HTML document and, through a headless browser backend, a paginated
// PDF. The HTML carries CSS page-break hints so fiscal documents never split
// a table row across pages.
package render

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"fattura/internal/domain"
	"fattura/internal/fatturapa"
)

var italianPrinter = message.NewPrinter(language.Italian)

// Amount formats a monetary value with two decimals and Italian separators
// (1.220,00).
func Amount(d decimal.Decimal) string {
	f, _ := d.Float64()
	return italianPrinter.Sprint(number.Decimal(f, number.Scale(2)))
}

// Date reformats an ISO date as DD-MM-YYYY. Unparseable input passes through
// unchanged, matching the lenient policy used everywhere else.
func Date(iso string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return t.Format("02-01-2006")
}

// lineView is the presentation form of one invoice line. Blank strings mean
// "suppress the cell": a zero in FatturaPA often means the field was omitted.
type lineView struct {
	Number      int
	Code        string
	Description string
	Quantity    string
	UnitPrice   string
	Discount    string
	VAT         string
	Total       string
}

type paymentView struct {
	Method  string
	DueDate string
	Amount  string
}

type invoiceView struct {
	Title         string
	DocumentType  string
	Number        string
	Date          string
	Currency      string
	Supplier      partyView
	Customer      partyView
	Lines         []lineView
	Payments      []paymentView
	TaxableAmount string
	TaxAmount     string
	TotalAmount   string
}

type partyView struct {
	Name       string
	VAT        string
	FiscalCode string
	Address    string
}

// RenderHTML produces the styled HTML document for an invoice.
func RenderHTML(inv *domain.CanonicalInvoice) (string, error) {
	view := buildView(inv)
	var sb strings.Builder
	if err := invoiceTemplate.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("%w: executing invoice template: %v", domain.ErrRenderFailed, err)
	}
	return sb.String(), nil
}

func buildView(inv *domain.CanonicalInvoice) invoiceView {
	view := invoiceView{
		Title:         fmt.Sprintf("Fattura %s del %s", inv.Number, Date(inv.Date)),
		DocumentType:  fatturapa.DocumentTypeLabel(inv.DocumentType),
		Number:        inv.Number,
		Date:          Date(inv.Date),
		Currency:      inv.Currency,
		Supplier:      partyView{Name: inv.SupplierName, VAT: inv.SupplierVAT, FiscalCode: inv.SupplierFiscalCode, Address: formatAddress(inv.SupplierAddress)},
		Customer:      partyView{Name: inv.CustomerName, VAT: inv.CustomerVAT, Address: formatAddress(inv.CustomerAddress)},
		TaxableAmount: Amount(inv.TaxableAmount),
		TaxAmount:     Amount(inv.TaxAmount),
		TotalAmount:   Amount(inv.TotalAmount),
	}

	for _, item := range inv.LineItems {
		line := lineView{
			Number:      item.Number,
			Code:        item.Code,
			Description: item.Description,
		}
		if item.HasQuantity {
			line.Quantity = Amount(item.Quantity)
		}
		line.UnitPrice = Amount(item.UnitPrice)
		// Discount, VAT and total cells stay blank when the source omitted
		// the line total; printing zeros would misstate the document.
		if item.HasExplicitTotal {
			if !item.DiscountPercent.IsZero() {
				line.Discount = Amount(item.DiscountPercent) + "%"
			}
			line.VAT = Amount(item.VATPercent) + "%"
			line.Total = Amount(item.Total)
		}
		view.Lines = append(view.Lines, line)
	}

	for _, p := range inv.PaymentDetails {
		view.Payments = append(view.Payments, paymentView{
			Method:  fatturapa.PaymentMethodLabel(p.Method),
			DueDate: Date(p.DueDate),
			Amount:  Amount(p.Amount),
		})
	}

	return view
}

func formatAddress(a domain.Address) string {
	var parts []string
	street := strings.TrimSpace(a.Street + " " + a.Number)
	if street != "" {
		parts = append(parts, street)
	}
	town := strings.TrimSpace(strings.Join(strings.Fields(a.PostalCode+" "+a.City+" "+a.Province), " "))
	if town != "" {
		parts = append(parts, town)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="it">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  @page { size: A4; margin: 18mm 14mm; }
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 11px; color: #1a1a1a; }
  h1 { font-size: 16px; margin-bottom: 2px; }
  .doc-type { color: #555; margin-bottom: 14px; }
  .parties { width: 100%; margin-bottom: 16px; page-break-inside: avoid; }
  .parties td { vertical-align: top; width: 50%; padding: 8px; border: 1px solid #d0d0d0; }
  .party-label { font-size: 9px; text-transform: uppercase; color: #777; margin-bottom: 4px; }
  .party-name { font-weight: bold; }
  table.lines { width: 100%; border-collapse: collapse; page-break-inside: auto; }
  table.lines th { background: #00467f; color: #fff; padding: 5px 6px; text-align: left; font-size: 10px; }
  table.lines td { padding: 4px 6px; border-bottom: 1px solid #e0e0e0; }
  table.lines tr { page-break-inside: avoid; page-break-after: auto; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 12px; width: 45%; margin-left: auto; border-collapse: collapse; page-break-inside: avoid; }
  .totals td { padding: 4px 6px; }
  .totals .grand td { font-weight: bold; border-top: 2px solid #00467f; }
  .payments { margin-top: 18px; page-break-inside: avoid; }
  .payments h2 { font-size: 12px; }
  .payments table { width: 100%; border-collapse: collapse; }
  .payments td, .payments th { padding: 4px 6px; border-bottom: 1px solid #e0e0e0; text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="doc-type">{{.DocumentType}} &middot; Valuta {{.Currency}}</div>

<table class="parties"><tr>
  <td>
    <div class="party-label">Cedente / Prestatore</div>
    <div class="party-name">{{.Supplier.Name}}</div>
    {{if .Supplier.VAT}}<div>P.IVA {{.Supplier.VAT}}</div>{{end}}
    {{if .Supplier.FiscalCode}}<div>C.F. {{.Supplier.FiscalCode}}</div>{{end}}
    <div>{{.Supplier.Address}}</div>
  </td>
  <td>
    <div class="party-label">Cessionario / Committente</div>
    <div class="party-name">{{.Customer.Name}}</div>
    {{if .Customer.VAT}}<div>P.IVA {{.Customer.VAT}}</div>{{end}}
    <div>{{.Customer.Address}}</div>
  </td>
</tr></table>

<table class="lines">
  <thead><tr>
    <th>#</th><th>Codice</th><th>Descrizione</th>
    <th class="num">Qt&agrave;</th><th class="num">Prezzo</th>
    <th class="num">Sconto</th><th class="num">IVA</th><th class="num">Totale</th>
  </tr></thead>
  <tbody>
  {{range .Lines}}
    <tr>
      <td>{{.Number}}</td><td>{{.Code}}</td><td>{{.Description}}</td>
      <td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td>
      <td class="num">{{.Discount}}</td><td class="num">{{.VAT}}</td><td class="num">{{.Total}}</td>
    </tr>
  {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Imponibile</td><td class="num">{{.TaxableAmount}} {{.Currency}}</td></tr>
  <tr><td>Imposta</td><td class="num">{{.TaxAmount}} {{.Currency}}</td></tr>
  <tr class="grand"><td>Totale documento</td><td class="num">{{.TotalAmount}} {{.Currency}}</td></tr>
</table>

{{if .Payments}}
<div class="payments">
  <h2>Pagamenti</h2>
  <table>
    <thead><tr><th>Modalit&agrave;</th><th>Scadenza</th><th class="num">Importo</th></tr></thead>
    <tbody>
    {{range .Payments}}
      <tr><td>{{.Method}}</td><td>{{.DueDate}}</td><td class="num">{{.Amount}}</td></tr>
    {{end}}
    </tbody>
  </table>
</div>
{{end}}
</body>
</html>
`))
