package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valores por defecto al crear un ítem de catálogo desde una factura.
const (
	DefaultCatalogCategory  = "Otros"
	DefaultRestockFrequency = "weekly"
)

// CatalogEntry ítem de stock del usuario (tabla stock_items).
// El nombre no es clave estricta: pueden existir duplicados.
type CatalogEntry struct {
	ID                  string
	UserID              string
	ProductName         string
	Unit                string
	LastUnitPrice       decimal.Decimal
	Quantity            decimal.Decimal
	PreferredProviderID *string
	Category            string
	RestockFrequency    string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PriceHistory registro de precio unitario de un ítem por proveedor.
type PriceHistory struct {
	ID          string
	StockItemID string
	ProviderID  *string
	DocumentID  *string
	UnitPrice   decimal.Decimal
	RecordedAt  time.Time
}
