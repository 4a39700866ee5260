// Package ubl lee facturas electrónicas en XML UBL 2.1 y las traduce a los mismos campos que
// produce la extracción por OCR.
package ubl

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/pkg/taxid"
)

var _ ports.StructuredInvoiceReader = (*InvoiceReader)(nil)

// InvoiceReader implementa ports.StructuredInvoiceReader sobre etree.
type InvoiceReader struct {
	defaultCurrency string
}

// NewInvoiceReader defaultCurrency se usa si el XML no declara currencyID.
func NewInvoiceReader(defaultCurrency string) *InvoiceReader {
	return &InvoiceReader{defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// CanRead indica si raw parece un documento Invoice UBL.
func (r *InvoiceReader) CanRead(raw string) bool {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "<") {
		return false
	}
	head := s
	if len(head) > 2048 {
		head = head[:2048]
	}
	return strings.Contains(head, "Invoice") &&
		(strings.Contains(head, "urn:oasis:names:specification:ubl") || strings.Contains(head, "<cbc:"))
}

// Read extrae número, fecha, total, moneda, CUIT del emisor y líneas. La confianza es 1 porque
// los valores no dependen del reconocimiento óptico.
func (r *InvoiceReader) Read(raw string) (entity.ExtractedInvoiceData, []entity.LineItem, error) {
	out := entity.ExtractedInvoiceData{
		Currency:      r.defaultCurrency,
		OCRConfidence: 1,
		Source:        entity.ExtractionSourceUBLXML,
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(strings.TrimSpace(raw)); err != nil {
		return out, nil, fmt.Errorf("ubl: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Invoice" {
		return out, nil, fmt.Errorf("ubl: la raíz no es Invoice")
	}

	if v := textOf(child(root, "ID")); v != "" {
		out.InvoiceNumber = &v
	}
	if v := textOf(child(root, "IssueDate")); v != "" {
		if _, err := time.Parse("2006-01-02", v); err == nil {
			out.IssueDate = &v
		}
	}
	if cur := textOf(child(root, "DocumentCurrencyCode")); cur != "" {
		out.Currency = strings.ToUpper(cur)
	}
	if payable := child(root, "LegalMonetaryTotal", "PayableAmount"); payable != nil {
		if d, err := decimal.NewFromString(textOf(payable)); err == nil && d.IsPositive() {
			out.TotalAmount = &d
		}
		if cur := payable.SelectAttrValue("currencyID", ""); cur != "" {
			out.Currency = strings.ToUpper(cur)
		}
	}
	if id := supplierTaxID(root); id != "" {
		out.TaxID = &id
	}

	var items []entity.LineItem
	for _, line := range children(root, "InvoiceLine") {
		name := textOf(child(line, "Item", "Name"))
		if name == "" {
			name = textOf(child(line, "Item", "Description"))
		}
		if name == "" {
			continue
		}
		qtyEl := child(line, "InvoicedQuantity")
		items = append(items, entity.LineItem{
			ProductName: name,
			Quantity:    decimalOf(qtyEl),
			Unit:        attrOf(qtyEl, "unitCode"),
			UnitPrice:   decimalOf(child(line, "Price", "PriceAmount")),
		})
	}
	return out, items, nil
}

// supplierTaxID CUIT de AccountingSupplierParty, desde PartyTaxScheme o PartyIdentification.
func supplierTaxID(root *etree.Element) string {
	party := child(root, "AccountingSupplierParty", "Party")
	if party == nil {
		return ""
	}
	for _, path := range [][]string{
		{"PartyTaxScheme", "CompanyID"},
		{"PartyLegalEntity", "CompanyID"},
		{"PartyIdentification", "ID"},
	} {
		if id := taxid.Normalize(textOf(child(party, path...))); id != "" {
			return id
		}
	}
	return ""
}

// ── helpers ───────────────────────────────────────────────────────────────────

// child sigue path por nombre local, sin importar el prefijo (cbc:, cac: o ninguno).
func child(e *etree.Element, path ...string) *etree.Element {
	cur := e
	for _, name := range path {
		if cur == nil {
			return nil
		}
		var next *etree.Element
		for _, c := range cur.ChildElements() {
			if c.Tag == name {
				next = c
				break
			}
		}
		cur = next
	}
	return cur
}

func children(e *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == name {
			out = append(out, c)
		}
	}
	return out
}

func textOf(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text())
}

func attrOf(e *etree.Element, key string) string {
	if e == nil {
		return ""
	}
	return e.SelectAttrValue(key, "")
}

func decimalOf(e *etree.Element) decimal.Decimal {
	d, err := decimal.NewFromString(textOf(e))
	if err != nil {
		return decimal.Zero
	}
	return d
}
