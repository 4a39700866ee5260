package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/conciliador-api/internal/application/catalog"
	"github.com/jhoicas/conciliador-api/internal/application/invoices"
	"github.com/jhoicas/conciliador-api/internal/application/orders"
	"github.com/jhoicas/conciliador-api/internal/application/payment"
	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/application/sideeffect"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/extraction"
	"github.com/jhoicas/conciliador-api/internal/domain/settlement"
	"github.com/jhoicas/conciliador-api/internal/domain/validation"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/memstore"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/pdf"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/xlsx"
	apphttp "github.com/jhoicas/conciliador-api/internal/interfaces/http"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type failingExporter struct{}

func (failingExporter) ExportCatalog(context.Context, []entity.CatalogEntry) ([]byte, error) {
	return nil, errors.New("disco lleno")
}

// buildAPI arma la API completa sobre memstore con un pedido, un proveedor y una factura.
func buildAPI(t *testing.T, exporter ports.CatalogExporter) (*fiber.App, *memstore.Store) {
	t.Helper()
	s := memstore.New().WithClock(func() time.Time { return now })

	s.PutProvider(entity.Provider{
		ID: "p-1", UserID: testUserID, Name: "Distribuidora Sur", TaxID: "30712345671",
		BankAlias: "sur.pagos.mp", CreatedAt: now,
	})
	s.PutOrder(entity.Order{
		ID: "o-1", UserID: testUserID, OrderNumber: "PED-1", ProviderID: "p-1",
		Status: entity.OrderStatusAwaitingInvoice, Currency: "ARS", TotalAmount: decimal.NewFromInt(1000),
		CreatedAt: now.Add(-24 * time.Hour),
	})
	amount := decimal.RequireFromString("1050")
	number := "0001-00000099"
	s.PutDocument(entity.Document{
		ID: "d-1", UserID: testUserID, FileURL: "storage://facturas/d-1.jpg",
		DocumentType: entity.DocumentTypeInvoice, Status: entity.DocumentStatusProcessed,
		ExtractedData: &entity.ExtractedInvoiceData{InvoiceNumber: &number, TotalAmount: &amount, Currency: "ARS", OCRConfidence: 0.95},
	})
	s.PutDocument(entity.Document{
		ID: "d-2", UserID: testUserID, FileURL: "storage://facturas/d-2.jpg",
		DocumentType: entity.DocumentTypeInvoice, Status: entity.DocumentStatusPending,
	})

	effects := sideeffect.NewDispatcher(nil, nil, s.LinkHistory(), logger.Nop())
	engine := validation.NewEngine("ARS", 0.7)
	flow := orders.NewFlowUseCase(s, effects).WithClock(func() time.Time { return now })

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Process: invoices.NewProcessUseCase(s.Documents(), s.Orders(), s.Providers(),
			extraction.NewExtractor("ARS"), engine, nil, nil, effects),
		Validate:  invoices.NewValidateUseCase(s.Orders(), s.Providers(), s.Documents(), engine, effects),
		Flow:      flow,
		Payment:   payment.NewPaymentDataUseCase(s.Orders(), s.Providers(), settlement.NewBuilder("ARS", "transfer", "es-AR"), pdf.NewSlipRenderer()),
		Reconcile: catalog.NewReconcileUseCase(s, s.Providers()),
		Export:    catalog.NewExportUseCase(s.Catalog(), exporter),
		JWTSecret: testJWTSecret,
		Logger:    logger.Nop(),
	})
	return app, s
}

func call(t *testing.T, app *fiber.App, method, path, userID string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ── Documents ─────────────────────────────────────────────────────────────────

func TestRouter_SinToken_Retorna401(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))
	resp := call(t, app, http.MethodPost, "/api/documents/d-1/link", "", map[string]string{"order_id": "o-1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_LinkDocument(t *testing.T) {
	app, s := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/documents/d-1/link", testUserID, map[string]string{"order_id": "o-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, entity.OrderStatusPendingPayment, body["status"])
	assert.Equal(t, entity.OrderStatusAwaitingInvoice, body["previous_status"])

	o, _ := s.Order("o-1")
	assert.Equal(t, entity.OrderStatusPendingPayment, o.Status)
}

func TestRouter_LinkDocument_PedidoInexistente_Retorna404(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/documents/d-1/link", testUserID, map[string]string{"order_id": "nope"})
	body := decode(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRouter_DocumentoDeOtroUsuario_Retorna404(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/documents/d-1/link", "otro-usuario", map[string]string{"order_id": "o-1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_LinkDocument_CuerpoInvalido_Retorna400(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/documents/d-1/link", strings.NewReader("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, testUserID))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body := decode(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", body["code"])
}

func TestRouter_UnlinkSinVincular_Retorna409(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/documents/d-1/unlink", testUserID, nil)
	body := decode(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["code"])
}

func TestRouter_ProcessDocument(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/documents/d-2/process", testUserID, map[string]any{
		"raw_text":       "Factura A N° 0001-00004567\nFecha: 15/03/2024\nTOTAL: $ 1.050,00",
		"ocr_confidence": 0.9,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	extracted, ok := body["extracted"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0001-00004567", extracted["invoice_number"])
	assert.Equal(t, "2024-03-15", extracted["issue_date"])
}

func TestRouter_ProcessDocument_SinTexto_Retorna400(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/documents/d-2/process", testUserID, nil)
	body := decode(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])
}

// ── Orders ────────────────────────────────────────────────────────────────────

func TestRouter_RequestInvoice_TransicionInvalida_Retorna409(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/orders/o-1/request-invoice", testUserID, nil)
	body := decode(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
}

func TestRouter_ValidateOrder(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/orders/o-1/validate", testUserID, map[string]string{"document_id": "d-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	verdict, ok := body["verdict"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, verdict["is_valid"])
}

func TestRouter_PaymentData(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodGet, "/api/orders/o-1/payment-data", testUserID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	assert.Equal(t, false, body["finalized"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ARS", data["currency"])
	assert.Equal(t, "sur.pagos.mp", data["bank_alias"])

	resp = call(t, app, http.MethodPost, "/api/orders/o-1/payment-data", testUserID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["finalized"])
}

func TestRouter_PaymentSlipPDF(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodGet, "/api/orders/o-1/payment-data/pdf", testUserID, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func TestRouter_Reconcile(t *testing.T) {
	app, s := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/catalog/reconcile", testUserID, map[string]any{
		"tax_id": "30-71234567-1",
		"line_items": []map[string]any{
			{"product_name": "Guantes Nitrilo M", "quantity": "2", "unit": "caja", "unit_price": "1500"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)

	assert.Equal(t, "p-1", body["provider_id"])
	assert.EqualValues(t, 1, body["created"])
	assert.Len(t, s.CatalogEntries(testUserID), 1)
}

func TestRouter_Reconcile_SinCUIT_Retorna400(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodPost, "/api/catalog/reconcile", testUserID, map[string]any{"tax_id": ""})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_ExportCatalog(t *testing.T) {
	app, _ := buildAPI(t, xlsx.NewCatalogExporter(nil))

	resp := call(t, app, http.MethodGet, "/api/catalog/export", testUserID, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}

func TestRouter_ErrorInterno_Retorna500SinDetalle(t *testing.T) {
	app, _ := buildAPI(t, failingExporter{})

	resp := call(t, app, http.MethodGet, "/api/catalog/export", testUserID, nil)
	body := decode(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL", body["code"])
	assert.NotContains(t, body["message"], "disco lleno")
}
