package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/application/orders"
	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/application/sideeffect"
	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/memstore"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

const userID = "u-1"

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []ports.OrderStatusEvent
}

func (r *recordingBroadcaster) BroadcastOrderStatus(_ context.Context, ev ports.OrderStatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	store *memstore.Store
	bc    *recordingBroadcaster
	uc    *orders.FlowUseCase
}

func setup(t *testing.T) fixture {
	t.Helper()
	s := memstore.New().WithClock(func() time.Time { return now })
	bc := &recordingBroadcaster{}
	effects := sideeffect.NewDispatcher(bc, nil, s.LinkHistory(), logger.Nop())
	uc := orders.NewFlowUseCase(s, effects).WithClock(func() time.Time { return now })

	amount := decimal.RequireFromString("1234.50")
	number := "0001-00000099"
	s.PutOrder(entity.Order{
		ID: "o-1", UserID: userID, OrderNumber: "PED-1", ProviderID: "p-1",
		Status: entity.OrderStatusAwaitingInvoice, Currency: "ARS", TotalAmount: decimal.NewFromInt(1000),
		CreatedAt: now.Add(-48 * time.Hour),
	})
	s.PutDocument(entity.Document{
		ID: "d-inv", UserID: userID, FileURL: "storage://facturas/d-inv.jpg",
		DocumentType: entity.DocumentTypeInvoice, Status: entity.DocumentStatusProcessed,
		ExtractedData: &entity.ExtractedInvoiceData{InvoiceNumber: &number, TotalAmount: &amount, Currency: "ARS", OCRConfidence: 0.9},
	})
	return fixture{store: s, bc: bc, uc: uc}
}

// ── LinkDocument ──────────────────────────────────────────────────────────────

func TestLinkDocument_FacturaPasaAPendienteDePago(t *testing.T) {
	f := setup(t)

	res, err := f.uc.LinkDocument(context.Background(), userID, "d-inv", dto.LinkDocumentRequest{OrderID: "o-1"})
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusAwaitingInvoice, res.PreviousStatus)
	assert.Equal(t, entity.OrderStatusPendingPayment, res.Status)
	assert.True(t, decimal.RequireFromString("1234.50").Equal(res.TotalAmount), "el total se reemplaza por defecto")

	o, _ := f.store.Order("o-1")
	require.NotNil(t, o.ReceiptURL)
	assert.Equal(t, "storage://facturas/d-inv.jpg", *o.ReceiptURL)
	d, _ := f.store.Document("d-inv")
	assert.Equal(t, entity.DocumentStatusAssigned, d.Status)
	require.NotNil(t, d.OrderID)
	assert.Equal(t, "o-1", *d.OrderID)

	require.Len(t, f.bc.events, 1)
	assert.Equal(t, ports.SourceDocumentLink, f.bc.events[0].Source)
	assert.Equal(t, entity.OrderStatusPendingPayment, f.bc.events[0].Status)
	rows := f.store.LinkHistoryRows()
	require.Len(t, rows, 1)
	assert.Equal(t, entity.LinkActionLink, rows[0].Action)
}

func TestLinkDocument_SinSobrescribirTotal(t *testing.T) {
	f := setup(t)
	overwrite := false

	res, err := f.uc.LinkDocument(context.Background(), userID, "d-inv", dto.LinkDocumentRequest{OrderID: "o-1", OverwriteTotal: &overwrite})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(res.TotalAmount))
}

func TestLinkDocument_ComprobanteDePagoMarcaPagado(t *testing.T) {
	f := setup(t)
	_, err := f.uc.LinkDocument(context.Background(), userID, "d-inv", dto.LinkDocumentRequest{OrderID: "o-1"})
	require.NoError(t, err)
	f.store.PutDocument(entity.Document{ID: "d-pay", UserID: userID, FileURL: "storage://pagos/d-pay.pdf", DocumentType: entity.DocumentTypePaymentProof, Status: entity.DocumentStatusPending})

	res, err := f.uc.LinkDocument(context.Background(), userID, "d-pay", dto.LinkDocumentRequest{OrderID: "o-1"})
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusPaid, res.Status)
	require.NotNil(t, res.PaidAt)
	assert.Equal(t, now, *res.PaidAt)
}

func TestLinkDocument_Errores(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.uc.LinkDocument(ctx, userID, "no-existe", dto.LinkDocumentRequest{OrderID: "o-1"})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = f.uc.LinkDocument(ctx, userID, "d-inv", dto.LinkDocumentRequest{OrderID: "no-existe"})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.LinkDocument(ctx, "otro-usuario", "d-inv", dto.LinkDocumentRequest{OrderID: "o-1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.LinkDocument(ctx, userID, "d-inv", dto.LinkDocumentRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.bc.events, "sin transición no hay broadcast")
}

func TestLinkDocument_DocumentoYaVinculadoEsConflicto(t *testing.T) {
	f := setup(t)
	_, err := f.uc.LinkDocument(context.Background(), userID, "d-inv", dto.LinkDocumentRequest{OrderID: "o-1"})
	require.NoError(t, err)

	_, err = f.uc.LinkDocument(context.Background(), userID, "d-inv", dto.LinkDocumentRequest{OrderID: "o-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLinkDocument_TransicionInvalidaNoPersisteNada(t *testing.T) {
	f := setup(t)
	f.store.PutDocument(entity.Document{ID: "d-pay", UserID: userID, FileURL: "x", DocumentType: entity.DocumentTypePaymentProof, Status: entity.DocumentStatusPending})
	f.store.PutOrder(entity.Order{ID: "o-2", UserID: userID, ProviderID: "p-1", Status: entity.OrderStatusStandby})

	_, err := f.uc.LinkDocument(context.Background(), userID, "d-pay", dto.LinkDocumentRequest{OrderID: "o-2"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	d, _ := f.store.Document("d-pay")
	assert.Equal(t, entity.DocumentStatusPending, d.Status)
	assert.Nil(t, d.OrderID)
}

func TestLinkDocument_ConcurrentesSobreElMismoPedido(t *testing.T) {
	f := setup(t)
	amount := decimal.RequireFromString("990")
	f.store.PutDocument(entity.Document{
		ID: "d-inv-2", UserID: userID, FileURL: "storage://facturas/d-inv-2.jpg",
		DocumentType: entity.DocumentTypeInvoice, Status: entity.DocumentStatusProcessed,
		ExtractedData: &entity.ExtractedInvoiceData{TotalAmount: &amount, Currency: "ARS", OCRConfidence: 0.9},
	})

	docs := []string{"d-inv", "d-inv-2"}
	errs := make([]error, len(docs))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, id := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = f.uc.LinkDocument(context.Background(), userID, id, dto.LinkDocumentRequest{OrderID: "o-1"})
		}()
	}
	close(start)
	wg.Wait()

	ok, lost := 0, -1
	for i, err := range errs {
		if err == nil {
			ok++
			continue
		}
		lost = i
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrConflict), "error inesperado: %v", err)
	}
	require.Equal(t, 1, ok, "solo una vinculación gana")

	o, _ := f.store.Order("o-1")
	assert.Equal(t, entity.OrderStatusPendingPayment, o.Status)
	d, _ := f.store.Document(docs[lost])
	assert.Equal(t, entity.DocumentStatusProcessed, d.Status, "el perdedor no queda asignado")
	assert.Nil(t, d.OrderID)
	assert.Len(t, f.store.LinkHistoryRows(), 1)
	f.bc.mu.Lock()
	assert.Len(t, f.bc.events, 1)
	f.bc.mu.Unlock()
}

// ── UnlinkDocument ────────────────────────────────────────────────────────────

func TestUnlinkDocument_VuelveAEsperandoFactura(t *testing.T) {
	f := setup(t)
	_, err := f.uc.LinkDocument(context.Background(), userID, "d-inv", dto.LinkDocumentRequest{OrderID: "o-1"})
	require.NoError(t, err)

	res, err := f.uc.UnlinkDocument(context.Background(), userID, "d-inv")
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusPendingPayment, res.PreviousStatus)
	assert.Equal(t, entity.OrderStatusAwaitingInvoice, res.Status)
	assert.Nil(t, res.ReceiptURL)
	assert.Nil(t, res.ExtractedInvoice)

	d, _ := f.store.Document("d-inv")
	assert.Equal(t, entity.DocumentStatusProcessed, d.Status)
	assert.Nil(t, d.OrderID)

	rows := f.store.LinkHistoryRows()
	require.Len(t, rows, 2)
	assert.Equal(t, entity.LinkActionUnlink, rows[1].Action)
	assert.Equal(t, ports.SourceDocumentUnlink, f.bc.events[1].Source)
}

func TestUnlinkDocument_FacturaDePedidoPagadoSeRechaza(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.uc.LinkDocument(ctx, userID, "d-inv", dto.LinkDocumentRequest{OrderID: "o-1"})
	require.NoError(t, err)
	f.store.PutDocument(entity.Document{ID: "d-pay", UserID: userID, FileURL: "storage://pagos/d-pay.pdf", DocumentType: entity.DocumentTypePaymentProof, Status: entity.DocumentStatusPending})
	_, err = f.uc.LinkDocument(ctx, userID, "d-pay", dto.LinkDocumentRequest{OrderID: "o-1"})
	require.NoError(t, err)

	_, err = f.uc.UnlinkDocument(ctx, userID, "d-inv")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	o, _ := f.store.Order("o-1")
	assert.Equal(t, entity.OrderStatusPaid, o.Status)
	assert.NotNil(t, o.ReceiptURL)
	assert.NotNil(t, o.PaidAt)
	d, _ := f.store.Document("d-inv")
	assert.Equal(t, entity.DocumentStatusAssigned, d.Status, "el rollback deja el documento vinculado")

	// en orden inverso se puede
	_, err = f.uc.UnlinkDocument(ctx, userID, "d-pay")
	require.NoError(t, err)
	res, err := f.uc.UnlinkDocument(ctx, userID, "d-inv")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusAwaitingInvoice, res.Status)
	assert.Nil(t, res.PaidAt)
	assert.Nil(t, res.PaymentReceiptURL)
	assert.True(t, decimal.NewFromInt(1000).Equal(res.TotalAmount), "vuelve el total original")
}

func TestUnlinkDocument_NoVinculadoEsConflicto(t *testing.T) {
	f := setup(t)
	_, err := f.uc.UnlinkDocument(context.Background(), userID, "d-inv")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

// ── UploadInvoice ─────────────────────────────────────────────────────────────

func TestUploadInvoice_EligePedidoMasRecienteSinFactura(t *testing.T) {
	f := setup(t)
	f.store.PutOrder(entity.Order{ID: "o-nuevo", UserID: userID, OrderNumber: "PED-2", ProviderID: "p-1", Status: entity.OrderStatusStandby, CreatedAt: now.Add(-time.Hour)})

	res, err := f.uc.UploadInvoice(context.Background(), userID, "d-inv", dto.UploadInvoiceRequest{ProviderID: "p-1"})
	require.NoError(t, err)

	assert.Equal(t, "o-nuevo", res.OrderID)
	assert.Equal(t, entity.OrderStatusPendingPayment, res.Status)
	d, _ := f.store.Document("d-inv")
	require.NotNil(t, d.ProviderID)
	assert.Equal(t, "p-1", *d.ProviderID)
	assert.Equal(t, ports.SourceUploadInvoice, f.bc.events[0].Source)
}

func TestUploadInvoice_SinPedidoPendiente(t *testing.T) {
	f := setup(t)

	_, err := f.uc.UploadInvoice(context.Background(), userID, "d-inv", dto.UploadInvoiceRequest{ProviderID: "p-sin-pedidos"})
	assert.ErrorIs(t, err, domain.ErrNoPendingOrder)
}

func TestUploadInvoice_PedidoDeOtroProveedor(t *testing.T) {
	f := setup(t)

	_, err := f.uc.UploadInvoice(context.Background(), userID, "d-inv", dto.UploadInvoiceRequest{ProviderID: "p-2", OrderID: "o-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── RequestInvoice ────────────────────────────────────────────────────────────

func TestRequestInvoice(t *testing.T) {
	f := setup(t)
	f.store.PutOrder(entity.Order{ID: "o-3", UserID: userID, Status: entity.OrderStatusStandby})

	res, err := f.uc.RequestInvoice(context.Background(), userID, "o-3")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusAwaitingInvoice, res.Status)
	assert.Equal(t, ports.SourceRequestInvoice, f.bc.events[0].Source)

	_, err = f.uc.RequestInvoice(context.Background(), userID, "o-3")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
