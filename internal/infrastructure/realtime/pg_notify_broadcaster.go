// Package realtime publica los cambios de estado de pedidos con LISTEN/NOTIFY de PostgreSQL.
// Los clientes (app móvil vía gateway) escuchan el canal configurado.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
)

// maxPayloadBytes límite de NOTIFY en PostgreSQL (8000 bytes por defecto).
const maxPayloadBytes = 7999

// Execer lo mínimo que se necesita del pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ ports.EventBroadcaster = (*PgNotifyBroadcaster)(nil)

// PgNotifyBroadcaster envía el evento como JSON con pg_notify.
type PgNotifyBroadcaster struct {
	db      Execer
	channel string
}

// NewPgNotifyBroadcaster construye el broadcaster para el canal indicado.
func NewPgNotifyBroadcaster(db Execer, channel string) *PgNotifyBroadcaster {
	return &PgNotifyBroadcaster{db: db, channel: channel}
}

// BroadcastOrderStatus publica {order_id, status, receipt_url, timestamp, source}.
func (b *PgNotifyBroadcaster) BroadcastOrderStatus(ctx context.Context, ev ports.OrderStatusEvent) error {
	if b.channel == "" {
		return errors.New("realtime: canal vacío")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("realtime: serializar evento: %w", err)
	}
	if len(payload) > maxPayloadBytes {
		return fmt.Errorf("realtime: payload de %d bytes excede el límite de NOTIFY", len(payload))
	}
	if _, err := b.db.Exec(ctx, `SELECT pg_notify($1, $2)`, b.channel, string(payload)); err != nil {
		return fmt.Errorf("realtime: pg_notify: %w", err)
	}
	return nil
}
