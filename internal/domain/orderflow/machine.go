// Package orderflow define el grafo de estados del pedido y las transiciones puras
// que aplican los cambios de cada evento sobre la entidad.
package orderflow

import (
	"fmt"
	"slices"
	"time"

	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// Event evento que dispara una transición.
type Event string

const (
	EventRequestInvoice   Event = "request_invoice"   // se pidió la factura al proveedor
	EventInvoiceReceived  Event = "invoice_received"  // llegó y se procesó una factura para el pedido
	EventInvoiceLinked    Event = "invoice_linked"    // factura vinculada al pedido
	EventPaymentLinked    Event = "payment_linked"    // comprobante de pago vinculado
	EventDocumentUnlinked Event = "document_unlinked" // se desvinculó un documento
)

type edge struct {
	from []string
	to   string
}

var graph = map[Event]edge{
	EventRequestInvoice: {
		from: []string{entity.OrderStatusStandby},
		to:   entity.OrderStatusAwaitingInvoice,
	},
	EventInvoiceReceived: {
		from: []string{entity.OrderStatusStandby, entity.OrderStatusAwaitingInvoice},
		to:   entity.OrderStatusInvoiceReceived,
	},
	EventInvoiceLinked: {
		from: []string{entity.OrderStatusStandby, entity.OrderStatusAwaitingInvoice, entity.OrderStatusInvoiceReceived},
		to:   entity.OrderStatusPendingPayment,
	},
	EventPaymentLinked: {
		from: []string{entity.OrderStatusAwaitingInvoice, entity.OrderStatusInvoiceReceived, entity.OrderStatusPendingPayment},
		to:   entity.OrderStatusPaid,
	},
	EventDocumentUnlinked: {
		from: []string{entity.OrderStatusAwaitingInvoice, entity.OrderStatusInvoiceReceived, entity.OrderStatusPendingPayment, entity.OrderStatusPaid},
		to:   entity.OrderStatusAwaitingInvoice,
	},
}

// Statuses todos los estados válidos.
func Statuses() []string {
	return []string{
		entity.OrderStatusStandby,
		entity.OrderStatusAwaitingInvoice,
		entity.OrderStatusInvoiceReceived,
		entity.OrderStatusPendingPayment,
		entity.OrderStatusPaid,
	}
}

// Next devuelve el estado destino del evento o ErrInvalidTransition.
func Next(current string, ev Event) (string, error) {
	e, ok := graph[ev]
	if !ok {
		return "", fmt.Errorf("evento desconocido %q: %w", ev, domain.ErrInvalidTransition)
	}
	if !slices.Contains(e.from, current) {
		return "", fmt.Errorf("%s desde %q: %w", ev, current, domain.ErrInvalidTransition)
	}
	return e.to, nil
}

// CanTransition indica si el evento es válido desde el estado actual.
func CanTransition(current string, ev Event) bool {
	_, err := Next(current, ev)
	return err == nil
}

// Change resultado de aplicar una transición.
type Change struct {
	OrderID        string
	PreviousStatus string
	NewStatus      string
	Event          Event
}

// LinkOptions opciones al vincular una factura.
type LinkOptions struct {
	OverwriteTotal bool // reemplaza total_amount por el monto extraído si es positivo
}

// ApplyInvoiceLink guarda la referencia de la factura y los datos extraídos en el pedido.
func ApplyInvoiceLink(o *entity.Order, doc *entity.Document, opts LinkOptions, now time.Time) (Change, error) {
	if doc.DocumentType != entity.DocumentTypeInvoice {
		return Change{}, fmt.Errorf("documento de tipo %q no es factura: %w", doc.DocumentType, domain.ErrInvalidInput)
	}
	ch, err := transition(o, EventInvoiceLinked, now)
	if err != nil {
		return Change{}, err
	}
	ref := doc.FileURL
	o.ReceiptURL = &ref
	if doc.ExtractedData != nil {
		data := *doc.ExtractedData
		o.ExtractedInvoice = &data
		if opts.OverwriteTotal && data.HasPositiveTotal() {
			o.ReplaceTotal(*data.TotalAmount)
		}
		if data.Currency != "" && o.Currency == "" {
			o.Currency = data.Currency
		}
	}
	return ch, nil
}

// ApplyPaymentLink guarda el comprobante de pago y la fecha de pago.
func ApplyPaymentLink(o *entity.Order, doc *entity.Document, now time.Time) (Change, error) {
	if doc.DocumentType != entity.DocumentTypePaymentProof {
		return Change{}, fmt.Errorf("documento de tipo %q no es comprobante de pago: %w", doc.DocumentType, domain.ErrInvalidInput)
	}
	ch, err := transition(o, EventPaymentLinked, now)
	if err != nil {
		return Change{}, err
	}
	ref := doc.FileURL
	paidAt := now
	o.PaymentReceiptURL = &ref
	o.PaidAt = &paidAt
	return ch, nil
}

// ApplyLink despacha según el tipo declarado del documento.
func ApplyLink(o *entity.Order, doc *entity.Document, opts LinkOptions, now time.Time) (Change, error) {
	switch doc.DocumentType {
	case entity.DocumentTypeInvoice:
		return ApplyInvoiceLink(o, doc, opts, now)
	case entity.DocumentTypePaymentProof:
		return ApplyPaymentLink(o, doc, now)
	default:
		return Change{}, fmt.Errorf("tipo de documento %q no vinculable: %w", doc.DocumentType, domain.ErrInvalidInput)
	}
}

// ApplyUnlink limpia la referencia del tipo de documento y vuelve a esperando_factura.
// La factura no se desvincula mientras haya un comprobante de pago vinculado.
func ApplyUnlink(o *entity.Order, documentType string, now time.Time) (Change, error) {
	if documentType != entity.DocumentTypePaymentProof && o.PaymentReceiptURL != nil {
		return Change{}, fmt.Errorf("desvincular primero el comprobante de pago del pedido %s: %w", o.ID, domain.ErrInvalidTransition)
	}
	ch, err := transition(o, EventDocumentUnlinked, now)
	if err != nil {
		return Change{}, err
	}
	switch documentType {
	case entity.DocumentTypePaymentProof:
		o.PaymentReceiptURL = nil
		o.PaidAt = nil
	default:
		o.ReceiptURL = nil
		o.ExtractedInvoice = nil
		o.RestoreTotal()
	}
	return ch, nil
}

// ApplyInvoiceReceived registra los datos de una factura procesada sin vincularla aún.
func ApplyInvoiceReceived(o *entity.Order, data entity.ExtractedInvoiceData, now time.Time) (Change, error) {
	ch, err := transition(o, EventInvoiceReceived, now)
	if err != nil {
		return Change{}, err
	}
	o.ExtractedInvoice = &data
	return ch, nil
}

// ApplyRequestInvoice marca el pedido como esperando factura.
func ApplyRequestInvoice(o *entity.Order, now time.Time) (Change, error) {
	return transition(o, EventRequestInvoice, now)
}

func transition(o *entity.Order, ev Event, now time.Time) (Change, error) {
	to, err := Next(o.Status, ev)
	if err != nil {
		return Change{}, err
	}
	ch := Change{OrderID: o.ID, PreviousStatus: o.Status, NewStatus: to, Event: ev}
	o.Status = to
	o.UpdatedAt = now
	return ch, nil
}
