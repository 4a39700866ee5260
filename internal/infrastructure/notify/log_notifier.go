// Package notify entrega los avisos de discrepancias. El canal de mensajería real es externo;
// este adaptador deja el aviso en el log estructurado para que lo tome el colector.
package notify

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

var _ ports.DiscrepancyNotifier = (*LogNotifier)(nil)

// LogNotifier registra cada aviso como un evento de log.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier construye el notificador.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &LogNotifier{log: log.Component("notify")}
}

// NotifyDiscrepancy escribe el aviso con sus códigos y recomendaciones.
func (n *LogNotifier) NotifyDiscrepancy(_ context.Context, d ports.DiscrepancyNotification) error {
	codes := make([]string, 0, len(d.Discrepancies))
	for _, x := range d.Discrepancies {
		codes = append(codes, x.Code+":"+x.Severity)
	}
	n.log.Warn().
		Str("user_id", d.UserID).
		Str("order_id", d.OrderID).
		Str("order_number", d.OrderNumber).
		Strs("discrepancies", codes).
		Strs("recommendations", d.Recommendations).
		Msg("factura con discrepancias")
	return nil
}
