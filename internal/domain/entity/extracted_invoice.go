package entity

import "github.com/shopspring/decimal"

// Origen de los datos extraídos.
const (
	ExtractionSourceOCR    = "ocr"
	ExtractionSourceUBLXML = "ubl_xml"
)

// ExtractedInvoiceData campos candidatos extraídos de una factura. Cada campo es opcional:
// nil significa que ningún patrón lo encontró.
type ExtractedInvoiceData struct {
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	IssueDate     *string          `json:"issue_date,omitempty"` // YYYY-MM-DD
	TaxID         *string          `json:"tax_id,omitempty"`     // solo dígitos
	Currency      string           `json:"currency"`
	OCRConfidence float64          `json:"ocr_confidence"`
	Source        string           `json:"source,omitempty"`
}

// HasPositiveTotal indica si hay un monto extraído mayor a cero.
func (e *ExtractedInvoiceData) HasPositiveTotal() bool {
	return e != nil && e.TotalAmount != nil && e.TotalAmount.IsPositive()
}
