package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/application/invoices"
	"github.com/jhoicas/conciliador-api/internal/application/orders"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

// DocumentHandler procesamiento y vinculación de documentos (protegido).
type DocumentHandler struct {
	process *invoices.ProcessUseCase
	flow    *orders.FlowUseCase
	log     *logger.Logger
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(process *invoices.ProcessUseCase, flow *orders.FlowUseCase, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{process: process, flow: flow, log: log}
}

// Process extrae los campos de la factura a partir del texto OCR.
// POST /api/documents/:id/process
func (h *DocumentHandler) Process(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ProcessDocumentRequest
	if err := parseOptionalBody(c, &in); err != nil {
		return invalidBody(c)
	}
	res, err := h.process.Process(c.Context(), userID, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// Link vincula el documento a un pedido.
// POST /api/documents/:id/link
func (h *DocumentHandler) Link(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.LinkDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.flow.LinkDocument(c.Context(), userID, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// Unlink desvincula el documento de su pedido.
// POST /api/documents/:id/unlink
func (h *DocumentHandler) Unlink(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	res, err := h.flow.UnlinkDocument(c.Context(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// UploadInvoice vincula una factura al pedido pendiente del proveedor.
// POST /api/documents/:id/upload-invoice
func (h *DocumentHandler) UploadInvoice(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.UploadInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.flow.UploadInvoice(c.Context(), userID, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}
