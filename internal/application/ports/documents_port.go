package ports

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/settlement"
)

// StructuredInvoiceReader lee facturas electrónicas estructuradas (XML UBL) cuando el
// "texto" recibido no es OCR sino el archivo original.
type StructuredInvoiceReader interface {
	CanRead(raw string) bool
	Read(raw string) (entity.ExtractedInvoiceData, []entity.LineItem, error)
}

// SettlementSlipRenderer genera el comprobante de datos de pago (PDF).
type SettlementSlipRenderer interface {
	RenderSettlementSlip(ctx context.Context, p settlement.Payload) ([]byte, error)
}

// CatalogExporter serializa el catálogo (XLSX).
type CatalogExporter interface {
	ExportCatalog(ctx context.Context, entries []entity.CatalogEntry) ([]byte, error)
}
