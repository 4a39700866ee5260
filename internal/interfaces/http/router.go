package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/conciliador-api/internal/application/catalog"
	"github.com/jhoicas/conciliador-api/internal/application/invoices"
	"github.com/jhoicas/conciliador-api/internal/application/orders"
	"github.com/jhoicas/conciliador-api/internal/application/payment"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Process   *invoices.ProcessUseCase
	Validate  *invoices.ValidateUseCase
	Flow      *orders.FlowUseCase
	Payment   *payment.PaymentDataUseCase
	Reconcile *catalog.ReconcileUseCase
	Export    *catalog.ExportUseCase
	JWTSecret string
	Logger    *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Documents
	documents := api.Group("/documents")
	documentHandler := NewDocumentHandler(deps.Process, deps.Flow, log)
	documents.Post("/:id/process", documentHandler.Process)
	documents.Post("/:id/link", documentHandler.Link)
	documents.Post("/:id/unlink", documentHandler.Unlink)
	documents.Post("/:id/upload-invoice", documentHandler.UploadInvoice)

	// Orders
	ordersGroup := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.Validate, deps.Flow, deps.Payment, log)
	ordersGroup.Post("/:id/validate", orderHandler.Validate)
	ordersGroup.Post("/:id/request-invoice", orderHandler.RequestInvoice)
	ordersGroup.Get("/:id/payment-data", orderHandler.PreviewPaymentData)
	ordersGroup.Post("/:id/payment-data", orderHandler.FinalizePaymentData)
	ordersGroup.Get("/:id/payment-data/pdf", orderHandler.PaymentSlipPDF)

	// Catalog
	catalogGroup := api.Group("/catalog")
	catalogHandler := NewCatalogHandler(deps.Reconcile, deps.Export, log)
	catalogGroup.Post("/reconcile", catalogHandler.Reconcile)
	catalogGroup.Get("/export", catalogHandler.Export)
}
