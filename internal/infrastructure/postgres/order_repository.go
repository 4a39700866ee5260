package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación de OrderRepository sobre PostgreSQL (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `
	id, user_id, order_number, provider_id, COALESCE(items, '[]'::jsonb), currency, total_amount, expected_total, status,
	extracted_invoice, receipt_url, payment_receipt_url, payment_method,
	created_at, updated_at, paid_at`

func scanOrder(row rowScanner) (*entity.Order, error) {
	var o entity.Order
	var items []entity.LineItem
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.ProviderID, &items, &o.Currency, &o.TotalAmount, &o.ExpectedTotal, &o.Status,
		&o.ExtractedInvoice, &o.ReceiptURL, &o.PaymentReceiptURL, &o.PaymentMethod,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// GetByID obtiene el pedido del usuario. (nil, nil) si no existe.
func (r *OrderRepo) GetByID(ctx context.Context, id, userID string) (*entity.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	o, err := scanOrder(r.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetForUpdate obtiene el pedido y bloquea la fila (SELECT FOR UPDATE).
func (r *OrderRepo) GetForUpdate(ctx context.Context, id, userID string) (*entity.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`
	o, err := scanOrder(r.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order for update: %w", asConflict(err))
	}
	return o, nil
}

// FindLatestWithoutReceipt pedido más reciente del proveedor sin factura vinculada.
func (r *OrderRepo) FindLatestWithoutReceipt(ctx context.Context, userID, providerID string) (*entity.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND provider_id = $2 AND receipt_url IS NULL
		ORDER BY created_at DESC
		LIMIT 1`
	o, err := scanOrder(r.q.QueryRow(ctx, query, userID, providerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order without receipt: %w", err)
	}
	return o, nil
}

// UpdateTransition persiste la transición solo si el estado no cambió desde la lectura.
func (r *OrderRepo) UpdateTransition(ctx context.Context, o *entity.Order, expectedStatus string) error {
	query := `
		UPDATE orders
		SET status              = $4,
		    receipt_url         = $5,
		    payment_receipt_url = $6,
		    extracted_invoice   = $7,
		    total_amount        = $8,
		    currency            = $9,
		    paid_at             = $10,
		    updated_at          = $11,
		    expected_total      = $12
		WHERE id = $1 AND user_id = $2 AND status = $3`
	tag, err := r.q.Exec(ctx, query,
		o.ID, o.UserID, expectedStatus,
		o.Status, o.ReceiptURL, o.PaymentReceiptURL, o.ExtractedInvoice,
		o.TotalAmount, o.Currency, o.PaidAt, o.UpdatedAt, o.ExpectedTotal,
	)
	if err != nil {
		return fmt.Errorf("update order transition: %w", asConflict(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pedido %s ya no está en %q: %w", o.ID, expectedStatus, domain.ErrConflict)
	}
	return nil
}

// UpdateSettlement guarda monto y moneda confirmados para el pago. El total original queda
// en expected_total la primera vez que cambia.
func (r *OrderRepo) UpdateSettlement(ctx context.Context, id, userID string, amount decimal.Decimal, currency string) error {
	query := `
		UPDATE orders
		SET expected_total = COALESCE(expected_total, CASE WHEN total_amount <> $3 THEN total_amount END),
		    total_amount   = $3,
		    currency       = $4,
		    updated_at     = now()
		WHERE id = $1 AND user_id = $2`
	tag, err := r.q.Exec(ctx, query, id, userID, amount, currency)
	if err != nil {
		return fmt.Errorf("update order settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
