package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/memstore"
)

func TestRunOrder_RollbackAnteError(t *testing.T) {
	s := memstore.New()
	s.PutOrder(entity.Order{ID: "o-1", UserID: "u-1", Status: entity.OrderStatusStandby})

	err := s.RunOrder(context.Background(), func(orders repository.OrderRepository, _ repository.DocumentRepository) error {
		o, err := orders.GetForUpdate(context.Background(), "o-1", "u-1")
		require.NoError(t, err)
		o.Status = entity.OrderStatusAwaitingInvoice
		require.NoError(t, orders.UpdateTransition(context.Background(), o, entity.OrderStatusStandby))
		return errors.New("falla posterior")
	})
	require.Error(t, err)

	o, _ := s.Order("o-1")
	assert.Equal(t, entity.OrderStatusStandby, o.Status)
}

func TestUpdateTransition_ConflictoSiCambioElEstado(t *testing.T) {
	s := memstore.New()
	s.PutOrder(entity.Order{ID: "o-1", UserID: "u-1", Status: entity.OrderStatusPaid})

	err := s.Orders().UpdateTransition(context.Background(), &entity.Order{ID: "o-1", UserID: "u-1", Status: entity.OrderStatusPendingPayment}, entity.OrderStatusAwaitingInvoice)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetByID_OtroUsuarioNoVe(t *testing.T) {
	s := memstore.New()
	s.PutOrder(entity.Order{ID: "o-1", UserID: "u-1"})

	o, err := s.Orders().GetByID(context.Background(), "o-1", "u-2")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestFindLatestWithoutReceipt(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ref := "storage://f.pdf"
	s := memstore.New()
	s.PutOrder(entity.Order{ID: "viejo", UserID: "u-1", ProviderID: "p-1", CreatedAt: t0})
	s.PutOrder(entity.Order{ID: "nuevo", UserID: "u-1", ProviderID: "p-1", CreatedAt: t0.Add(time.Hour)})
	s.PutOrder(entity.Order{ID: "con-factura", UserID: "u-1", ProviderID: "p-1", CreatedAt: t0.Add(2 * time.Hour), ReceiptURL: &ref})
	s.PutOrder(entity.Order{ID: "otro-prov", UserID: "u-1", ProviderID: "p-2", CreatedAt: t0.Add(3 * time.Hour)})

	o, err := s.Orders().FindLatestWithoutReceipt(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "nuevo", o.ID)
}
