package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

var _ repository.ProviderRepository = (*ProviderRepo)(nil)

// ProviderRepo lectura de proveedores (la escritura la hace el módulo de proveedores).
type ProviderRepo struct {
	q Querier
}

// NewProviderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProviderRepository(q Querier) *ProviderRepo {
	return &ProviderRepo{q: q}
}

const providerColumns = `
	id, user_id, name, COALESCE(tax_id, ''), COALESCE(bank_alias, ''), COALESCE(bank_account_number, ''),
	COALESCE(default_payment_method, ''), COALESCE(delivery_days, '{}'), created_at, updated_at`

func scanProvider(row rowScanner) (*entity.Provider, error) {
	var p entity.Provider
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.TaxID, &p.BankAlias, &p.BankAccountNumber,
		&p.DefaultPaymentMethod, &p.DeliveryDays, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID obtiene el proveedor del usuario. (nil, nil) si no existe.
func (r *ProviderRepo) GetByID(ctx context.Context, id, userID string) (*entity.Provider, error) {
	query := `SELECT` + providerColumns + ` FROM providers WHERE id = $1 AND user_id = $2`
	p, err := scanProvider(r.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

// ListWithTaxID proveedores con CUIT, del más reciente al más antiguo.
func (r *ProviderRepo) ListWithTaxID(ctx context.Context, userID string) ([]entity.Provider, error) {
	query := `SELECT` + providerColumns + `
		FROM providers
		WHERE user_id = $1 AND tax_id IS NOT NULL AND tax_id <> ''
		ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []entity.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
