package dto

import (
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/validation"
)

// ProcessDocumentRequest body para POST /api/documents/:id/process.
// RawText y OCRConfidence los entrega el servicio de OCR; sin RawText se procesa el texto
// guardado en el documento con su confianza. LineItems son opcionales (si el usuario ya
// corrigió las líneas, se usan esas).
type ProcessDocumentRequest struct {
	RawText       string        `json:"raw_text,omitempty"`
	OCRConfidence *float64      `json:"ocr_confidence,omitempty"`
	ProviderID    string        `json:"provider_id,omitempty"`
	OrderID       string        `json:"order_id,omitempty"` // pedido esperado, para validar y marcar factura_recibida
	LineItems     []LineItemDTO `json:"line_items,omitempty"`
}

// ProcessDocumentResponse resultado del procesamiento.
type ProcessDocumentResponse struct {
	Success     bool                        `json:"success"`
	Message     string                      `json:"message"`
	DocumentID  string                      `json:"document_id"`
	Status      string                      `json:"status"`
	Extracted   entity.ExtractedInvoiceData `json:"extracted"`
	LineItems   []LineItemDTO               `json:"line_items"`
	Verdict     *validation.Verdict         `json:"verdict,omitempty"`
	OrderStatus string                      `json:"order_status,omitempty"`
	Warnings    []string                    `json:"warnings,omitempty"`
}

// LinkDocumentRequest body para POST /api/documents/:id/link.
type LinkDocumentRequest struct {
	OrderID        string `json:"order_id"`
	OverwriteTotal *bool  `json:"overwrite_total,omitempty"` // por defecto true
}

// UploadInvoiceRequest body para POST /api/documents/:id/upload-invoice.
// Sin OrderID se elige el pedido más reciente del proveedor sin factura.
type UploadInvoiceRequest struct {
	ProviderID     string `json:"provider_id"`
	OrderID        string `json:"order_id,omitempty"`
	OverwriteTotal *bool  `json:"overwrite_total,omitempty"`
}

// OverwriteOrDefault devuelve el valor de overwrite_total o true si no vino.
func OverwriteOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
