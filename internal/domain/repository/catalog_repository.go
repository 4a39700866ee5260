package repository

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// CatalogRepository ítems de stock del usuario (tabla stock_items).
type CatalogRepository interface {
	ListByUser(ctx context.Context, userID string) ([]entity.CatalogEntry, error)
	Create(ctx context.Context, e *entity.CatalogEntry) error
	// Update asigna unidad, cantidad, último precio y proveedor preferido.
	Update(ctx context.Context, e *entity.CatalogEntry) error
}

// PriceHistoryRepository historial de precios por ítem.
type PriceHistoryRepository interface {
	Append(ctx context.Context, h *entity.PriceHistory) error
}
