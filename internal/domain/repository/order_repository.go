package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia de pedidos.
// Las lecturas devuelven (nil, nil) si el pedido no existe para el usuario.
type OrderRepository interface {
	GetByID(ctx context.Context, id, userID string) (*entity.Order, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id, userID string) (*entity.Order, error)
	// FindLatestWithoutReceipt pedido más reciente del proveedor sin factura vinculada.
	FindLatestWithoutReceipt(ctx context.Context, userID, providerID string) (*entity.Order, error)
	// UpdateTransition persiste estado, referencias, datos extraídos y total solo si el estado
	// actual sigue siendo expectedStatus. Devuelve domain.ErrConflict si otra operación lo cambió.
	UpdateTransition(ctx context.Context, order *entity.Order, expectedStatus string) error
	// UpdateSettlement persiste el monto y la moneda resueltos para el pago.
	UpdateSettlement(ctx context.Context, id, userID string, amount decimal.Decimal, currency string) error
}
