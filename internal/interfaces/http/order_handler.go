package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/application/invoices"
	"github.com/jhoicas/conciliador-api/internal/application/orders"
	"github.com/jhoicas/conciliador-api/internal/application/payment"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

// OrderHandler validación, estado y datos de pago de pedidos (protegido).
type OrderHandler struct {
	validate *invoices.ValidateUseCase
	flow     *orders.FlowUseCase
	payment  *payment.PaymentDataUseCase
	log      *logger.Logger
}

// NewOrderHandler construye el handler.
func NewOrderHandler(validate *invoices.ValidateUseCase, flow *orders.FlowUseCase, pay *payment.PaymentDataUseCase, log *logger.Logger) *OrderHandler {
	return &OrderHandler{validate: validate, flow: flow, payment: pay, log: log}
}

// Validate contrasta la factura con el pedido y el proveedor.
// POST /api/orders/:id/validate
func (h *OrderHandler) Validate(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ValidateOrderRequest
	if err := parseOptionalBody(c, &in); err != nil {
		return invalidBody(c)
	}
	res, err := h.validate.ValidateDocument(c.Context(), userID, c.Params("id"), in.DocumentID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// RequestInvoice pasa el pedido de standby a esperando_factura.
// POST /api/orders/:id/request-invoice
func (h *OrderHandler) RequestInvoice(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	res, err := h.flow.RequestInvoice(c.Context(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// PreviewPaymentData arma los datos de pago sin persistir.
// GET /api/orders/:id/payment-data
func (h *OrderHandler) PreviewPaymentData(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	res, err := h.payment.Preview(c.Context(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// FinalizePaymentData persiste monto y moneda resueltos en el pedido.
// POST /api/orders/:id/payment-data
func (h *OrderHandler) FinalizePaymentData(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	res, err := h.payment.Finalize(c.Context(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// PaymentSlipPDF descarga el comprobante de datos de pago.
// GET /api/orders/:id/payment-data/pdf
func (h *OrderHandler) PaymentSlipPDF(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	orderID := c.Params("id")
	pdf, err := h.payment.SlipPDF(c.Context(), orderID, userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="datos-de-pago-`+orderID+`.pdf"`)
	return c.Send(pdf)
}
