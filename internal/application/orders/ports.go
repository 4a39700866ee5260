package orders

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

// OrderTxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
// Las transiciones de pedido bloquean la fila (SELECT FOR UPDATE) dentro de fn.
type OrderTxRunner interface {
	RunOrder(ctx context.Context, fn func(
		orderRepo repository.OrderRepository,
		docRepo repository.DocumentRepository,
	) error) error
}
