package payment

import (
	"context"
	"fmt"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
	"github.com/jhoicas/conciliador-api/internal/domain/settlement"
)

// PaymentDataUseCase arma los datos para pagarle al proveedor un pedido.
type PaymentDataUseCase struct {
	orderRepo    repository.OrderRepository
	providerRepo repository.ProviderRepository
	builder      *settlement.Builder
	slip         ports.SettlementSlipRenderer // opcional
}

// NewPaymentDataUseCase construye el caso de uso. slip puede ser nil si no se exporta PDF.
func NewPaymentDataUseCase(
	orderRepo repository.OrderRepository,
	providerRepo repository.ProviderRepository,
	builder *settlement.Builder,
	slip ports.SettlementSlipRenderer,
) *PaymentDataUseCase {
	return &PaymentDataUseCase{orderRepo: orderRepo, providerRepo: providerRepo, builder: builder, slip: slip}
}

// Preview devuelve los datos de pago sin modificar el pedido.
func (uc *PaymentDataUseCase) Preview(ctx context.Context, orderID, userID string) (*dto.PaymentDataResponse, error) {
	p, err := uc.payload(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentDataResponse{Success: true, Message: "Datos de pago generados", Data: p}, nil
}

// Finalize genera los datos de pago y persiste monto y moneda en el pedido.
func (uc *PaymentDataUseCase) Finalize(ctx context.Context, orderID, userID string) (*dto.PaymentDataResponse, error) {
	p, err := uc.payload(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.orderRepo.UpdateSettlement(ctx, orderID, userID, p.Amount, p.Currency); err != nil {
		return nil, err
	}
	return &dto.PaymentDataResponse{Success: true, Message: "Datos de pago confirmados", Finalized: true, Data: p}, nil
}

// SlipPDF genera el comprobante de datos de pago.
func (uc *PaymentDataUseCase) SlipPDF(ctx context.Context, orderID, userID string) ([]byte, error) {
	if uc.slip == nil {
		return nil, fmt.Errorf("exportación a PDF no configurada: %w", domain.ErrInvalidInput)
	}
	p, err := uc.payload(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	return uc.slip.RenderSettlementSlip(ctx, p)
}

func (uc *PaymentDataUseCase) payload(ctx context.Context, orderID, userID string) (settlement.Payload, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID, userID)
	if err != nil {
		return settlement.Payload{}, err
	}
	if order == nil {
		return settlement.Payload{}, domain.ErrOrderNotFound
	}
	var provider *entity.Provider
	if order.ProviderID != "" {
		provider, err = uc.providerRepo.GetByID(ctx, order.ProviderID, userID)
		if err != nil {
			return settlement.Payload{}, err
		}
	}
	if provider == nil {
		return settlement.Payload{}, domain.ErrProviderNotFound
	}
	return uc.builder.Build(order, provider), nil
}
