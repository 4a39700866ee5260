// Package sideeffect concentra los efectos secundarios best-effort de las transiciones
// (broadcast en tiempo real, historial de vinculación, aviso de discrepancias).
// Ningún error ni panic de un colaborador se propaga al llamador: se registra y se descarta.
package sideeffect

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

// defaultTimeout tiempo máximo por efecto; se usa un contexto propio para que la
// cancelación del request no corte el aviso.
const defaultTimeout = 5 * time.Second

// Dispatcher ejecuta los efectos. Cualquier colaborador puede ser nil.
type Dispatcher struct {
	broadcaster ports.EventBroadcaster
	notifier    ports.DiscrepancyNotifier
	history     repository.LinkHistoryRepository
	log         *logger.Logger
	timeout     time.Duration
}

// NewDispatcher construye el dispatcher.
func NewDispatcher(
	broadcaster ports.EventBroadcaster,
	notifier ports.DiscrepancyNotifier,
	history repository.LinkHistoryRepository,
	log *logger.Logger,
) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		broadcaster: broadcaster,
		notifier:    notifier,
		history:     history,
		log:         log.Component("sideeffect"),
		timeout:     defaultTimeout,
	}
}

// OrderStatusChanged publica el nuevo estado del pedido.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, ev ports.OrderStatusEvent) bool {
	if d == nil || d.broadcaster == nil {
		return false
	}
	return d.run(ctx, "broadcast", ev.OrderID, func(ctx context.Context) error {
		return d.broadcaster.BroadcastOrderStatus(ctx, ev)
	})
}

// LinkRecorded escribe el historial de vinculación.
func (d *Dispatcher) LinkRecorded(ctx context.Context, h entity.LinkHistory) bool {
	if d == nil || d.history == nil {
		return false
	}
	return d.run(ctx, "link_history", h.OrderID, func(ctx context.Context) error {
		return d.history.Append(ctx, &h)
	})
}

// DiscrepancyDetected avisa al usuario de una factura que no valida.
func (d *Dispatcher) DiscrepancyDetected(ctx context.Context, n ports.DiscrepancyNotification) bool {
	if d == nil || d.notifier == nil {
		return false
	}
	return d.run(ctx, "discrepancy_notification", n.OrderID, func(ctx context.Context) error {
		return d.notifier.NotifyDiscrepancy(ctx, n)
	})
}

// run devuelve true si el efecto terminó sin error.
func (d *Dispatcher) run(ctx context.Context, effect, orderID string, fn func(context.Context) error) (ok bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("effect", effect).
				Str("order_id", orderID).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("efecto secundario abortado")
			ok = false
		}
	}()
	if err := fn(ctx); err != nil {
		d.log.Warn().
			Str("effect", effect).
			Str("order_id", orderID).
			Err(err).
			Msg("efecto secundario fallido")
		return false
	}
	return true
}
