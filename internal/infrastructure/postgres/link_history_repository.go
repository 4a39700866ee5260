package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

var _ repository.LinkHistoryRepository = (*LinkHistoryRepo)(nil)

// LinkHistoryRepo auditoría de vinculaciones (tabla document_link_history).
type LinkHistoryRepo struct {
	q Querier
}

// NewLinkHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLinkHistoryRepository(q Querier) *LinkHistoryRepo {
	return &LinkHistoryRepo{q: q}
}

// Append registra una vinculación o desvinculación.
func (r *LinkHistoryRepo) Append(ctx context.Context, h *entity.LinkHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO document_link_history (id, document_id, order_id, action, previous_status, new_status, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.DocumentID, h.OrderID, h.Action,
		nullIfEmpty(h.PreviousStatus), nullIfEmpty(h.NewStatus), h.Source, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert link history: %w", err)
	}
	return nil
}
