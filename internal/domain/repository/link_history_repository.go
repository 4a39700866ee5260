package repository

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// LinkHistoryRepository auditoría de vinculaciones documento ↔ pedido.
type LinkHistoryRepository interface {
	Append(ctx context.Context, h *entity.LinkHistory) error
}
