package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/settlement"
	"github.com/jhoicas/conciliador-api/internal/domain/validation"
)

// OrderTransitionResponse resultado de vincular/desvincular o cambiar el estado de un pedido.
type OrderTransitionResponse struct {
	Success           bool                         `json:"success"`
	Message           string                       `json:"message"`
	OrderID           string                       `json:"order_id"`
	OrderNumber       string                       `json:"order_number"`
	DocumentID        string                       `json:"document_id,omitempty"`
	PreviousStatus    string                       `json:"previous_status"`
	Status            string                       `json:"status"`
	TotalAmount       decimal.Decimal              `json:"total_amount"`
	ExpectedTotal     *decimal.Decimal             `json:"expected_total,omitempty"`
	Currency          string                       `json:"currency"`
	ReceiptURL        *string                      `json:"receipt_url"`
	PaymentReceiptURL *string                      `json:"payment_receipt_url"`
	ExtractedInvoice  *entity.ExtractedInvoiceData `json:"extracted_invoice"`
	PaidAt            *time.Time                   `json:"paid_at"`
}

// NewOrderTransitionResponse arma la respuesta desde el pedido ya transicionado.
func NewOrderTransitionResponse(o *entity.Order, previous, documentID, message string) *OrderTransitionResponse {
	return &OrderTransitionResponse{
		Success:           true,
		Message:           message,
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		DocumentID:        documentID,
		PreviousStatus:    previous,
		Status:            o.Status,
		TotalAmount:       o.TotalAmount,
		ExpectedTotal:     o.ExpectedTotal,
		Currency:          o.Currency,
		ReceiptURL:        o.ReceiptURL,
		PaymentReceiptURL: o.PaymentReceiptURL,
		ExtractedInvoice:  o.ExtractedInvoice,
		PaidAt:            o.PaidAt,
	}
}

// ValidateOrderRequest body para POST /api/orders/:id/validate.
// Sin DocumentID se valida la factura ya vinculada al pedido.
type ValidateOrderRequest struct {
	DocumentID string `json:"document_id,omitempty"`
}

// ValidationResponse veredicto para el usuario.
type ValidationResponse struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	OrderID  string             `json:"order_id"`
	Verdict  validation.Verdict `json:"verdict"`
	Notified bool               `json:"notified"`
}

// PaymentDataResponse datos de pago (vista previa o finalizados).
type PaymentDataResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message"`
	Finalized bool               `json:"finalized"`
	Data      settlement.Payload `json:"data"`
}
