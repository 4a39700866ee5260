package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// ReconcileRequest body para POST /api/catalog/reconcile.
// Con LineItems se usan las líneas editadas por el usuario; con FromDocuments se toman las
// líneas guardadas de los documentos que se re-vinculan al proveedor.
type ReconcileRequest struct {
	TaxID         string        `json:"tax_id"`
	LineItems     []LineItemDTO `json:"line_items,omitempty"`
	FromDocuments bool          `json:"from_documents,omitempty"`
}

// SkippedLine línea omitida y motivo.
type SkippedLine struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// CatalogEntryDTO ítem de catálogo en respuestas.
type CatalogEntryDTO struct {
	ID                  string          `json:"id"`
	ProductName         string          `json:"product_name"`
	Unit                string          `json:"unit"`
	Quantity            decimal.Decimal `json:"quantity"`
	LastUnitPrice       decimal.Decimal `json:"last_unit_price"`
	PreferredProviderID *string         `json:"preferred_provider_id"`
	Category            string          `json:"category"`
	RestockFrequency    string          `json:"restock_frequency"`
	Created             bool            `json:"created"`
	PriceChanged        bool            `json:"price_changed"`
}

// CatalogEntryFromEntity convierte desde la entidad.
func CatalogEntryFromEntity(e *entity.CatalogEntry) CatalogEntryDTO {
	return CatalogEntryDTO{
		ID:                  e.ID,
		ProductName:         e.ProductName,
		Unit:                e.Unit,
		Quantity:            e.Quantity,
		LastUnitPrice:       e.LastUnitPrice,
		PreferredProviderID: e.PreferredProviderID,
		Category:            e.Category,
		RestockFrequency:    e.RestockFrequency,
	}
}

// ReconcileResponse resultado de la conciliación.
type ReconcileResponse struct {
	Success           bool              `json:"success"`
	Message           string            `json:"message"`
	ProviderID        string            `json:"provider_id"`
	ProviderName      string            `json:"provider_name"`
	RelinkedDocuments []string          `json:"relinked_documents"`
	Created           int               `json:"created"`
	Updated           int               `json:"updated"`
	Skipped           []SkippedLine     `json:"skipped"`
	Entries           []CatalogEntryDTO `json:"entries"`
}
