package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

var (
	_ repository.CatalogRepository      = (*CatalogRepo)(nil)
	_ repository.PriceHistoryRepository = (*PriceHistoryRepo)(nil)
)

// CatalogRepo ítems de stock del usuario (tabla stock_items).
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// ListByUser todos los ítems del usuario, del más antiguo al más nuevo.
// Dentro de la conciliación se bloquean para que dos conciliaciones simultáneas no dupliquen ítems.
func (r *CatalogRepo) ListByUser(ctx context.Context, userID string) ([]entity.CatalogEntry, error) {
	query := `
		SELECT id, user_id, product_name, COALESCE(unit, ''), last_unit_price, quantity,
		       preferred_provider_id, category, restock_frequency, created_at, updated_at
		FROM stock_items
		WHERE user_id = $1
		ORDER BY created_at, id
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", asConflict(err))
	}
	defer rows.Close()

	var out []entity.CatalogEntry
	for rows.Next() {
		var e entity.CatalogEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ProductName, &e.Unit, &e.LastUnitPrice, &e.Quantity,
			&e.PreferredProviderID, &e.Category, &e.RestockFrequency, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create inserta el ítem; asigna id y timestamps.
func (r *CatalogRepo) Create(ctx context.Context, e *entity.CatalogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	query := `
		INSERT INTO stock_items (id, user_id, product_name, unit, last_unit_price, quantity,
		                         preferred_provider_id, category, restock_frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.UserID, e.ProductName, nullIfEmpty(e.Unit), e.LastUnitPrice, e.Quantity,
		e.PreferredProviderID, e.Category, e.RestockFrequency, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock item: %w", asConflict(err))
	}
	return nil
}

// Update asigna unidad, cantidad, último precio y proveedor preferido.
func (r *CatalogRepo) Update(ctx context.Context, e *entity.CatalogEntry) error {
	e.UpdatedAt = time.Now()
	query := `
		UPDATE stock_items
		SET unit = $3, quantity = $4, last_unit_price = $5, preferred_provider_id = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2`
	tag, err := r.q.Exec(ctx, query, e.ID, e.UserID, nullIfEmpty(e.Unit), e.Quantity, e.LastUnitPrice, e.PreferredProviderID, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update stock item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock item %s: %w", e.ID, domain.ErrNotFound)
	}
	return nil
}

const insertPriceHistorySQL = `
	INSERT INTO stock_price_history (id, stock_item_id, provider_id, document_id, unit_price, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// PriceHistoryRepo historial de precios (tabla stock_price_history).
type PriceHistoryRepo struct {
	q Querier
}

// NewPriceHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPriceHistoryRepository(q Querier) *PriceHistoryRepo {
	return &PriceHistoryRepo{q: q}
}

// Append registra un precio.
func (r *PriceHistoryRepo) Append(ctx context.Context, h *entity.PriceHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.RecordedAt.IsZero() {
		h.RecordedAt = time.Now()
	}
	if _, err := r.q.Exec(ctx, insertPriceHistorySQL, h.ID, h.StockItemID, h.ProviderID, h.DocumentID, h.UnitPrice, h.RecordedAt); err != nil {
		return fmt.Errorf("insert price history: %w", err)
	}
	return nil
}
