package ports

import (
	"context"
	"time"

	"github.com/jhoicas/conciliador-api/internal/domain/validation"
)

// OrderStatusEvent evento de cambio de estado para suscriptores en tiempo real.
type OrderStatusEvent struct {
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"`
	ReceiptURL *string   `json:"receipt_url"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
}

// Orígenes de los eventos.
const (
	SourceDocumentLink   = "document_link"
	SourceDocumentUnlink = "document_unlink"
	SourceUploadInvoice  = "upload_invoice"
	SourceProcessing     = "document_processing"
	SourceRequestInvoice = "request_invoice"
)

// EventBroadcaster publica cambios de estado. Sus fallas nunca deben afectar la transacción.
type EventBroadcaster interface {
	BroadcastOrderStatus(ctx context.Context, ev OrderStatusEvent) error
}

// DiscrepancyNotification aviso al usuario cuando una factura no valida.
type DiscrepancyNotification struct {
	UserID          string                   `json:"user_id"`
	OrderID         string                   `json:"order_id"`
	OrderNumber     string                   `json:"order_number"`
	Discrepancies   []validation.Discrepancy `json:"discrepancies"`
	Recommendations []string                 `json:"recommendations"`
}

// DiscrepancyNotifier envía el aviso por el canal externo (mensajería).
type DiscrepancyNotifier interface {
	NotifyDiscrepancy(ctx context.Context, n DiscrepancyNotification) error
}
