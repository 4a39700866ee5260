package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/conciliador-api/internal/application/catalog"
	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CatalogHandler conciliación y exportación del catálogo (protegido).
type CatalogHandler struct {
	reconcile *catalog.ReconcileUseCase
	export    *catalog.ExportUseCase
	log       *logger.Logger
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(reconcile *catalog.ReconcileUseCase, export *catalog.ExportUseCase, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{reconcile: reconcile, export: export, log: log}
}

// Reconcile incorpora las líneas de una factura al catálogo del usuario.
// POST /api/catalog/reconcile
func (h *CatalogHandler) Reconcile(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ReconcileRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.reconcile.Reconcile(c.Context(), userID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// Export descarga el catálogo en XLSX.
// GET /api/catalog/export
func (h *CatalogHandler) Export(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	out, err := h.export.ExportXLSX(c.Context(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, contentTypeXLSX)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="catalogo.xlsx"`)
	return c.Send(out)
}
