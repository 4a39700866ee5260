package invoices

import (
	"context"
	"fmt"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/application/sideeffect"
	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
	"github.com/jhoicas/conciliador-api/internal/domain/validation"
)

// ValidateUseCase compara una factura extraída con el pedido y su proveedor.
type ValidateUseCase struct {
	orderRepo    repository.OrderRepository
	providerRepo repository.ProviderRepository
	docRepo      repository.DocumentRepository
	engine       *validation.Engine
	effects      *sideeffect.Dispatcher
}

// NewValidateUseCase construye el caso de uso.
func NewValidateUseCase(
	orderRepo repository.OrderRepository,
	providerRepo repository.ProviderRepository,
	docRepo repository.DocumentRepository,
	engine *validation.Engine,
	effects *sideeffect.Dispatcher,
) *ValidateUseCase {
	return &ValidateUseCase{
		orderRepo:    orderRepo,
		providerRepo: providerRepo,
		docRepo:      docRepo,
		engine:       engine,
		effects:      effects,
	}
}

// ValidateDocument valida el documento indicado o, si documentID está vacío, la factura ya
// vinculada al pedido. Si el veredicto no es válido se envía el aviso de discrepancias.
func (uc *ValidateUseCase) ValidateDocument(ctx context.Context, userID, orderID, documentID string) (*dto.ValidationResponse, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	provider, err := uc.providerRepo.GetByID(ctx, order.ProviderID, userID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, domain.ErrProviderNotFound
	}

	var data *entity.ExtractedInvoiceData
	if documentID != "" {
		doc, err := uc.docRepo.GetByID(ctx, documentID, userID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, domain.ErrDocumentNotFound
		}
		if doc.ExtractedData == nil {
			return nil, fmt.Errorf("el documento no fue procesado: %w", domain.ErrInvalidInput)
		}
		data = doc.ExtractedData
	} else {
		if order.ExtractedInvoice == nil {
			return nil, fmt.Errorf("el pedido no tiene factura vinculada: %w", domain.ErrInvalidInput)
		}
		data = order.ExtractedInvoice
	}

	verdict := uc.engine.Validate(validation.Input{
		ExpectedAmount: order.ExpectedAmount(),
		ProviderTaxID:  provider.TaxID,
		Extracted:      *data,
	})
	res := &dto.ValidationResponse{
		Success: true,
		Message: "Factura validada",
		OrderID: order.ID,
		Verdict: verdict,
	}
	if !verdict.IsValid {
		res.Message = "La factura presenta discrepancias"
		res.Notified = uc.effects.DiscrepancyDetected(ctx, ports.DiscrepancyNotification{
			UserID:          userID,
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			Discrepancies:   verdict.Discrepancies,
			Recommendations: verdict.Recommendations,
		})
	}
	return res, nil
}
