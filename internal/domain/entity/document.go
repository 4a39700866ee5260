package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos declarados de documento.
const (
	DocumentTypeInvoice      = "invoice"
	DocumentTypePaymentProof = "payment_proof"
)

// Estados del documento: pending → processing → processed → assigned | error.
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusProcessed  = "processed"
	DocumentStatusAssigned   = "assigned"
	DocumentStatusError      = "error"
)

// Document archivo subido o recibido (factura o comprobante de pago).
// Invariante: Status == assigned implica OrderID != nil.
type Document struct {
	ID            string
	UserID        string
	ProviderID    *string
	OrderID       *string
	FileURL       string
	DocumentType  string
	RawText       *string
	OCRConfidence float64
	ExtractedData *ExtractedInvoiceData
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DocumentLineItem línea de detalle extraída de un documento.
type DocumentLineItem struct {
	ID          string
	DocumentID  string
	Position    int
	ProductName string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
}

// AsLineItem convierte la línea persistida al valor de conciliación.
func (d DocumentLineItem) AsLineItem() LineItem {
	return LineItem{ProductName: d.ProductName, Quantity: d.Quantity, Unit: d.Unit, UnitPrice: d.UnitPrice}
}
