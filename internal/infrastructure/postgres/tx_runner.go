package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/conciliador-api/internal/application/catalog"
	"github.com/jhoicas/conciliador-api/internal/application/orders"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

var (
	_ orders.OrderTxRunner    = (*TxRunner)(nil)
	_ catalog.CatalogTxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunOrder transacción de transiciones de pedido: repos de pedidos y documentos atados a la tx.
func (r *TxRunner) RunOrder(ctx context.Context, fn func(
	orderRepo repository.OrderRepository,
	docRepo repository.DocumentRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewOrderRepository(tx), NewDocumentRepository(tx))
	})
}

// RunCatalog transacción de conciliación de catálogo.
func (r *TxRunner) RunCatalog(ctx context.Context, fn func(
	catalogRepo repository.CatalogRepository,
	priceRepo repository.PriceHistoryRepository,
	docRepo repository.DocumentRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewCatalogRepository(tx), NewPriceHistoryRepository(tx), NewDocumentRepository(tx))
	})
}

// run hace Begin, ejecuta fn y Commit; ante error o panic hace Rollback.
func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return asConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", asConflict(err))
	}
	return nil
}
