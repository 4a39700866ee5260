package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del pedido (columna orders.status). Los valores se comparten con la app móvil.
const (
	OrderStatusStandby         = "standby"           // Creado, sin documentos
	OrderStatusAwaitingInvoice = "esperando_factura" // Esperando la factura del proveedor
	OrderStatusInvoiceReceived = "factura_recibida"  // Factura procesada, aún sin vincular
	OrderStatusPendingPayment  = "pendiente_de_pago" // Factura vinculada, falta el pago
	OrderStatusPaid            = "pagado"            // Comprobante de pago vinculado
)

// LineItem línea de pedido o de factura.
type LineItem struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Order pedido de compra a un proveedor.
type Order struct {
	ID                string
	UserID            string
	OrderNumber       string
	ProviderID        string
	Items             []LineItem
	Currency          string
	TotalAmount       decimal.Decimal
	ExpectedTotal     *decimal.Decimal // total del pedido antes de reemplazarlo por el de la factura
	Status            string
	ExtractedInvoice  *ExtractedInvoiceData // nil hasta vincular una factura
	ReceiptURL        *string               // referencia al archivo de la factura
	PaymentReceiptURL *string               // referencia al comprobante de pago
	PaymentMethod     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
}

// ExpectedAmount monto contra el que se valida la factura: el total original del pedido,
// aunque la vinculación o el pago lo hayan reemplazado.
func (o *Order) ExpectedAmount() decimal.Decimal {
	if o.ExpectedTotal != nil {
		return *o.ExpectedTotal
	}
	return o.TotalAmount
}

// ReplaceTotal cambia el total conservando el original la primera vez.
func (o *Order) ReplaceTotal(amount decimal.Decimal) {
	if o.ExpectedTotal == nil && !o.TotalAmount.Equal(amount) {
		prev := o.TotalAmount
		o.ExpectedTotal = &prev
	}
	o.TotalAmount = amount
}

// RestoreTotal vuelve al total original, si fue reemplazado.
func (o *Order) RestoreTotal() {
	if o.ExpectedTotal != nil {
		o.TotalAmount = *o.ExpectedTotal
		o.ExpectedTotal = nil
	}
}
