package orderflow_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/orderflow"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newOrder(status string) *entity.Order {
	return &entity.Order{ID: "o-1", Status: status, Currency: "ARS", TotalAmount: decimal.NewFromInt(1000)}
}

func invoiceDoc(total string) *entity.Document {
	amount := decimal.RequireFromString(total)
	number := "0001-00000099"
	return &entity.Document{
		ID:           "d-1",
		FileURL:      "storage://facturas/d-1.jpg",
		DocumentType: entity.DocumentTypeInvoice,
		ExtractedData: &entity.ExtractedInvoiceData{
			InvoiceNumber: &number,
			TotalAmount:   &amount,
			Currency:      "ARS",
			OCRConfidence: 0.9,
		},
	}
}

func TestNext_Grafo(t *testing.T) {
	cases := []struct {
		from string
		ev   orderflow.Event
		to   string
		ok   bool
	}{
		{entity.OrderStatusStandby, orderflow.EventRequestInvoice, entity.OrderStatusAwaitingInvoice, true},
		{entity.OrderStatusAwaitingInvoice, orderflow.EventRequestInvoice, "", false},
		{entity.OrderStatusAwaitingInvoice, orderflow.EventInvoiceReceived, entity.OrderStatusInvoiceReceived, true},
		{entity.OrderStatusPendingPayment, orderflow.EventInvoiceReceived, "", false},
		{entity.OrderStatusInvoiceReceived, orderflow.EventInvoiceLinked, entity.OrderStatusPendingPayment, true},
		{entity.OrderStatusPaid, orderflow.EventInvoiceLinked, "", false},
		{entity.OrderStatusPendingPayment, orderflow.EventPaymentLinked, entity.OrderStatusPaid, true},
		{entity.OrderStatusStandby, orderflow.EventPaymentLinked, "", false},
		{entity.OrderStatusPaid, orderflow.EventDocumentUnlinked, entity.OrderStatusAwaitingInvoice, true},
		{entity.OrderStatusStandby, orderflow.EventDocumentUnlinked, "", false},
	}
	for _, tc := range cases {
		got, err := orderflow.Next(tc.from, tc.ev)
		if tc.ok {
			require.NoError(t, err, "%s desde %s", tc.ev, tc.from)
			assert.Equal(t, tc.to, got)
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s desde %s", tc.ev, tc.from)
		}
	}
}

func TestApplyInvoiceLink_CopiaDatosYPasaAPendienteDePago(t *testing.T) {
	o := newOrder(entity.OrderStatusAwaitingInvoice)

	ch, err := orderflow.ApplyInvoiceLink(o, invoiceDoc("1234.50"), orderflow.LinkOptions{OverwriteTotal: true}, now)
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusAwaitingInvoice, ch.PreviousStatus)
	assert.Equal(t, entity.OrderStatusPendingPayment, o.Status)
	require.NotNil(t, o.ReceiptURL)
	assert.Equal(t, "storage://facturas/d-1.jpg", *o.ReceiptURL)
	require.NotNil(t, o.ExtractedInvoice)
	assert.Equal(t, "0001-00000099", *o.ExtractedInvoice.InvoiceNumber)
	assert.True(t, decimal.RequireFromString("1234.50").Equal(o.TotalAmount))
	require.NotNil(t, o.ExpectedTotal)
	assert.True(t, decimal.NewFromInt(1000).Equal(o.ExpectedAmount()), "se conserva el total original")
	assert.Equal(t, now, o.UpdatedAt)
}

func TestApplyInvoiceLink_SinSobrescribirTotal(t *testing.T) {
	o := newOrder(entity.OrderStatusAwaitingInvoice)

	_, err := orderflow.ApplyInvoiceLink(o, invoiceDoc("1234.50"), orderflow.LinkOptions{}, now)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(o.TotalAmount))
	assert.Nil(t, o.ExpectedTotal)
}

func TestApplyInvoiceLink_RechazaComprobanteDePago(t *testing.T) {
	o := newOrder(entity.OrderStatusAwaitingInvoice)
	doc := invoiceDoc("10")
	doc.DocumentType = entity.DocumentTypePaymentProof

	_, err := orderflow.ApplyInvoiceLink(o, doc, orderflow.LinkOptions{}, now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, entity.OrderStatusAwaitingInvoice, o.Status, "sin cambios ante error")
}

func TestApplyPaymentLink_MarcaPagado(t *testing.T) {
	o := newOrder(entity.OrderStatusPendingPayment)
	doc := &entity.Document{ID: "d-2", FileURL: "storage://pagos/d-2.pdf", DocumentType: entity.DocumentTypePaymentProof}

	_, err := orderflow.ApplyLink(o, doc, orderflow.LinkOptions{}, now)
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusPaid, o.Status)
	require.NotNil(t, o.PaymentReceiptURL)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, now, *o.PaidAt)
}

func TestApplyLink_TipoDesconocido(t *testing.T) {
	o := newOrder(entity.OrderStatusAwaitingInvoice)
	_, err := orderflow.ApplyLink(o, &entity.Document{DocumentType: "other"}, orderflow.LinkOptions{}, now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestApplyUnlink_FacturaVuelveAEsperandoFactura(t *testing.T) {
	o := newOrder(entity.OrderStatusAwaitingInvoice)
	_, err := orderflow.ApplyInvoiceLink(o, invoiceDoc("1234.50"), orderflow.LinkOptions{OverwriteTotal: true}, now)
	require.NoError(t, err)

	ch, err := orderflow.ApplyUnlink(o, entity.DocumentTypeInvoice, now)
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusPendingPayment, ch.PreviousStatus)
	assert.Equal(t, entity.OrderStatusAwaitingInvoice, o.Status)
	assert.Nil(t, o.ReceiptURL)
	assert.Nil(t, o.ExtractedInvoice)
	assert.True(t, decimal.NewFromInt(1000).Equal(o.TotalAmount), "se restaura el total original")
	assert.Nil(t, o.ExpectedTotal)
}

func TestApplyUnlink_ComprobanteLimpiaPago(t *testing.T) {
	o := newOrder(entity.OrderStatusPendingPayment)
	_, err := orderflow.ApplyPaymentLink(o, &entity.Document{FileURL: "x", DocumentType: entity.DocumentTypePaymentProof}, now)
	require.NoError(t, err)

	_, err = orderflow.ApplyUnlink(o, entity.DocumentTypePaymentProof, now)
	require.NoError(t, err)
	assert.Nil(t, o.PaymentReceiptURL)
	assert.Nil(t, o.PaidAt)
}

func TestApplyUnlink_FacturaConPagoVinculadoSeRechaza(t *testing.T) {
	o := newOrder(entity.OrderStatusAwaitingInvoice)
	_, err := orderflow.ApplyInvoiceLink(o, invoiceDoc("1234.50"), orderflow.LinkOptions{OverwriteTotal: true}, now)
	require.NoError(t, err)
	_, err = orderflow.ApplyPaymentLink(o, &entity.Document{FileURL: "storage://pagos/d-2.pdf", DocumentType: entity.DocumentTypePaymentProof}, now)
	require.NoError(t, err)

	_, err = orderflow.ApplyUnlink(o, entity.DocumentTypeInvoice, now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, entity.OrderStatusPaid, o.Status, "sin cambios ante error")
	assert.NotNil(t, o.ReceiptURL)
	assert.NotNil(t, o.PaidAt)
}

func TestApplyInvoiceReceived(t *testing.T) {
	o := newOrder(entity.OrderStatusStandby)
	_, err := orderflow.ApplyInvoiceReceived(o, entity.ExtractedInvoiceData{Currency: "ARS"}, now)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusInvoiceReceived, o.Status)
	assert.NotNil(t, o.ExtractedInvoice)
}

func TestStatuses(t *testing.T) {
	assert.Len(t, orderflow.Statuses(), 5)
	assert.True(t, orderflow.CanTransition(entity.OrderStatusStandby, orderflow.EventRequestInvoice))
}
