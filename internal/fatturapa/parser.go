// Package fatturapa parses FatturaPA invoice XML into the canonical invoice
// representation and derives the stable artifact base name.
//
// The four known schema namespace variants differ only in prefixes, so the
// parser works on local element names exclusively (etree keeps the prefix in
// Element.Space, never in Element.Tag). Field extraction is deliberately
// lenient: numeric fields default to zero rather than failing the parse,
// since real-world invoices routinely omit optional monetary detail. No XSD
// validation is performed.
package fatturapa

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"fattura/internal/domain"
)

// Root element names of the known schema variants, simplified invoice included.
var rootTags = map[string]bool{
	"FatturaElettronica":             true,
	"FatturaElettronicaSemplificata": true,
}

// Parse converts FatturaPA XML text into a canonical invoice.
func Parse(xmlText string) (*domain.CanonicalInvoice, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlText); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}

	root := findRoot(doc)
	if root == nil {
		return nil, fmt.Errorf("%w: no FatturaElettronica root element", domain.ErrParseFailed)
	}

	header := child(root, "FatturaElettronicaHeader")
	body := child(root, "FatturaElettronicaBody")
	if header == nil || body == nil {
		return nil, fmt.Errorf("%w: missing header or body section", domain.ErrParseFailed)
	}

	general := generalData(body)
	if general == nil {
		return nil, fmt.Errorf("%w: missing document general data", domain.ErrParseFailed)
	}

	inv := &domain.CanonicalInvoice{
		Number:       childText(general, "Numero"),
		Date:         childText(general, "Data"),
		DocumentType: childText(general, "TipoDocumento"),
		Currency:     childText(general, "Divisa"),
		TotalAmount:  childDecimal(general, "ImportoTotaleDocumento"),
	}
	if inv.Currency == "" {
		inv.Currency = "EUR"
	}

	parseSupplier(inv, child(header, "CedentePrestatore"))
	parseCustomer(inv, child(header, "CessionarioCommittente"))
	parseSummary(inv, child(body, "DatiBeniServizi"))
	parseLineItems(inv, child(body, "DatiBeniServizi"))
	parsePayments(inv, body)

	return inv, nil
}

// findRoot locates the invoice root: either the document root itself or, for
// payloads wrapped in an extra envelope element, the first matching descendant.
func findRoot(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	if rootTags[root.Tag] {
		return root
	}
	for _, el := range root.ChildElements() {
		if rootTags[el.Tag] {
			return el
		}
	}
	return nil
}

// generalData returns the document-general-data section. The full schema
// nests it as DatiGenerali/DatiGeneraliDocumento; the simplified schema keeps
// Numero and Data directly under DatiGenerali.
func generalData(body *etree.Element) *etree.Element {
	dg := child(body, "DatiGenerali")
	if dg == nil {
		return nil
	}
	if doc := child(dg, "DatiGeneraliDocumento"); doc != nil {
		return doc
	}
	if childText(dg, "Numero") != "" || childText(dg, "Data") != "" {
		return dg
	}
	return nil
}

func parseSupplier(inv *domain.CanonicalInvoice, cedente *etree.Element) {
	if cedente == nil {
		return
	}
	anag := child(cedente, "DatiAnagrafici")
	if anag == nil {
		// Simplified schema flattens the supplier identity.
		anag = cedente
	}
	inv.SupplierName = partyName(anag)
	inv.SupplierVAT = vatNumber(anag)
	inv.SupplierFiscalCode = childText(anag, "CodiceFiscale")
	inv.SupplierAddress = parseAddress(child(cedente, "Sede"))
}

func parseCustomer(inv *domain.CanonicalInvoice, cessionario *etree.Element) {
	if cessionario == nil {
		return
	}
	anag := child(cessionario, "DatiAnagrafici")
	if anag == nil {
		anag = child(cessionario, "IdentificativiFiscali")
		if anag == nil {
			anag = cessionario
		}
	}
	inv.CustomerName = partyName(anag)
	inv.CustomerVAT = vatNumber(anag)
	inv.CustomerAddress = parseAddress(child(cessionario, "Sede"))
}

// partyName returns the explicit denomination if present, otherwise the
// trimmed concatenation of given name and family name.
func partyName(anag *etree.Element) string {
	scope := child(anag, "Anagrafica")
	if scope == nil {
		scope = anag
	}
	if d := childText(scope, "Denominazione"); d != "" {
		return d
	}
	nome := childText(scope, "Nome")
	cognome := childText(scope, "Cognome")
	return strings.TrimSpace(strings.Join(strings.Fields(nome+" "+cognome), " "))
}

// vatNumber composes the VAT identifier from IdFiscaleIVA, country code first.
func vatNumber(anag *etree.Element) string {
	idIVA := child(anag, "IdFiscaleIVA")
	if idIVA == nil {
		return ""
	}
	return childText(idIVA, "IdPaese") + childText(idIVA, "IdCodice")
}

func parseAddress(sede *etree.Element) domain.Address {
	if sede == nil {
		return domain.Address{}
	}
	return domain.Address{
		Street:     childText(sede, "Indirizzo"),
		Number:     childText(sede, "NumeroCivico"),
		PostalCode: childText(sede, "CAP"),
		City:       childText(sede, "Comune"),
		Province:   childText(sede, "Provincia"),
		Country:    childText(sede, "Nazione"),
	}
}

// parseSummary accumulates the VAT summary rows into the taxable/tax totals.
func parseSummary(inv *domain.CanonicalInvoice, beni *etree.Element) {
	if beni == nil {
		return
	}
	for _, riepilogo := range children(beni, "DatiRiepilogo") {
		inv.TaxableAmount = inv.TaxableAmount.Add(childDecimal(riepilogo, "ImponibileImporto"))
		inv.TaxAmount = inv.TaxAmount.Add(childDecimal(riepilogo, "Imposta"))
	}
}

func parseLineItems(inv *domain.CanonicalInvoice, beni *etree.Element) {
	if beni == nil {
		return
	}
	for i, linea := range children(beni, "DettaglioLinee") {
		item := domain.LineItem{
			Number:      i + 1,
			Description: childText(linea, "Descrizione"),
			UnitPrice:   childDecimal(linea, "PrezzoUnitario"),
			VATPercent:  childDecimal(linea, "AliquotaIVA"),
			Total:       childDecimal(linea, "PrezzoTotale"),
		}
		if n := parseInt(childText(linea, "NumeroLinea")); n > 0 {
			item.Number = n
		}
		if codice := child(linea, "CodiceArticolo"); codice != nil {
			item.Code = childText(codice, "CodiceValore")
		}
		// HasQuantity tracks element presence, independent of its value:
		// an explicit zero quantity still renders as a quantity.
		if q := child(linea, "Quantita"); q != nil {
			item.HasQuantity = true
			item.Quantity = parseDecimal(q.Text())
		}
		if sconto := child(linea, "ScontoMaggiorazione"); sconto != nil {
			item.DiscountPercent = childDecimal(sconto, "Percentuale")
		}
		item.HasExplicitTotal = !item.Total.IsZero()
		inv.LineItems = append(inv.LineItems, item)
	}
}

func parsePayments(inv *domain.CanonicalInvoice, body *etree.Element) {
	for _, pagamento := range children(body, "DatiPagamento") {
		for _, dettaglio := range children(pagamento, "DettaglioPagamento") {
			inv.PaymentDetails = append(inv.PaymentDetails, domain.PaymentDetail{
				Method:  childText(dettaglio, "ModalitaPagamento"),
				DueDate: childText(dettaglio, "DataScadenzaPagamento"),
				Amount:  childDecimal(dettaglio, "ImportoPagamento"),
			})
		}
	}
	if len(inv.PaymentDetails) > 0 {
		inv.PaymentMethod = inv.PaymentDetails[0].Method
		inv.PaymentDueDate = inv.PaymentDetails[0].DueDate
	}
}

// ── element helpers (local-name matching only) ──

func child(e *etree.Element, tag string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func children(e *etree.Element, tag string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

func childText(e *etree.Element, tag string) string {
	c := child(e, tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

func childDecimal(e *etree.Element, tag string) decimal.Decimal {
	return parseDecimal(childText(e, tag))
}

// parseDecimal parses a monetary value, defaulting to zero on absent or
// non-numeric input. Comma decimal separators appear in hand-edited invoices.
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(s string) int {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return int(d.IntPart())
}
