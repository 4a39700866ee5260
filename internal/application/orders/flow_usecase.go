package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/application/sideeffect"
	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/orderflow"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

// FlowUseCase aplica las transiciones del pedido disparadas por documentos.
// Cada operación corre en una transacción con la fila del pedido bloqueada y persiste
// con un UPDATE condicionado al estado leído; los efectos (broadcast, historial) se
// disparan después del commit.
type FlowUseCase struct {
	txRunner OrderTxRunner
	effects  *sideeffect.Dispatcher
	now      func() time.Time
}

// NewFlowUseCase construye el caso de uso. effects puede ser nil.
func NewFlowUseCase(txRunner OrderTxRunner, effects *sideeffect.Dispatcher) *FlowUseCase {
	return &FlowUseCase{txRunner: txRunner, effects: effects, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *FlowUseCase) WithClock(now func() time.Time) *FlowUseCase {
	uc.now = now
	return uc
}

// transitionResult lo que queda de la transacción para armar la respuesta y los efectos.
type transitionResult struct {
	order  *entity.Order
	change orderflow.Change
	doc    *entity.Document
}

// LinkDocument vincula el documento al pedido indicado según su tipo declarado.
func (uc *FlowUseCase) LinkDocument(ctx context.Context, userID, documentID string, in dto.LinkDocumentRequest) (*dto.OrderTransitionResponse, error) {
	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(in.OrderID) == "" {
		return nil, fmt.Errorf("document_id y order_id son obligatorios: %w", domain.ErrInvalidInput)
	}
	now := uc.now()
	opts := orderflow.LinkOptions{OverwriteTotal: dto.OverwriteOrDefault(in.OverwriteTotal)}

	var res transitionResult
	err := uc.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, docRepo repository.DocumentRepository) error {
		doc, err := lockLinkableDocument(ctx, docRepo, documentID, userID)
		if err != nil {
			return err
		}
		order, err := orderRepo.GetForUpdate(ctx, in.OrderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		res, err = link(ctx, orderRepo, docRepo, order, doc, opts, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.afterTransition(ctx, res, entity.LinkActionLink, ports.SourceDocumentLink, now)
	return dto.NewOrderTransitionResponse(res.order, res.change.PreviousStatus, documentID, linkMessage(res.doc)), nil
}

// UploadInvoice vincula una factura al pedido indicado o, sin pedido, al más reciente del
// proveedor que todavía no tiene factura.
func (uc *FlowUseCase) UploadInvoice(ctx context.Context, userID, documentID string, in dto.UploadInvoiceRequest) (*dto.OrderTransitionResponse, error) {
	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(in.ProviderID) == "" {
		return nil, fmt.Errorf("document_id y provider_id son obligatorios: %w", domain.ErrInvalidInput)
	}
	now := uc.now()
	opts := orderflow.LinkOptions{OverwriteTotal: dto.OverwriteOrDefault(in.OverwriteTotal)}

	var res transitionResult
	err := uc.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, docRepo repository.DocumentRepository) error {
		doc, err := lockLinkableDocument(ctx, docRepo, documentID, userID)
		if err != nil {
			return err
		}
		if doc.DocumentType != entity.DocumentTypeInvoice {
			return fmt.Errorf("el documento no es una factura: %w", domain.ErrInvalidInput)
		}

		orderID := in.OrderID
		if orderID == "" {
			candidate, err := orderRepo.FindLatestWithoutReceipt(ctx, userID, in.ProviderID)
			if err != nil {
				return err
			}
			if candidate == nil {
				return domain.ErrNoPendingOrder
			}
			orderID = candidate.ID
		}
		order, err := orderRepo.GetForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		if order.ProviderID != in.ProviderID {
			return fmt.Errorf("el pedido pertenece a otro proveedor: %w", domain.ErrInvalidInput)
		}
		providerID := in.ProviderID
		doc.ProviderID = &providerID

		res, err = link(ctx, orderRepo, docRepo, order, doc, opts, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.afterTransition(ctx, res, entity.LinkActionLink, ports.SourceUploadInvoice, now)
	return dto.NewOrderTransitionResponse(res.order, res.change.PreviousStatus, documentID, "Factura cargada y vinculada al pedido "+res.order.OrderNumber), nil
}

// UnlinkDocument quita la referencia del documento en su pedido y vuelve a esperando_factura.
func (uc *FlowUseCase) UnlinkDocument(ctx context.Context, userID, documentID string) (*dto.OrderTransitionResponse, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("document_id es obligatorio: %w", domain.ErrInvalidInput)
	}
	now := uc.now()

	var res transitionResult
	err := uc.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, docRepo repository.DocumentRepository) error {
		doc, err := docRepo.GetForUpdate(ctx, documentID, userID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrDocumentNotFound
		}
		if doc.OrderID == nil {
			return fmt.Errorf("el documento no está vinculado a ningún pedido: %w", domain.ErrConflict)
		}
		order, err := orderRepo.GetForUpdate(ctx, *doc.OrderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		change, err := orderflow.ApplyUnlink(order, doc.DocumentType, now)
		if err != nil {
			return err
		}
		if err := orderRepo.UpdateTransition(ctx, order, change.PreviousStatus); err != nil {
			return err
		}
		doc.OrderID = nil
		doc.Status = entity.DocumentStatusProcessed
		doc.UpdatedAt = now
		if err := docRepo.UpdateLink(ctx, doc); err != nil {
			return err
		}
		res = transitionResult{order: order, change: change, doc: doc}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterTransition(ctx, res, entity.LinkActionUnlink, ports.SourceDocumentUnlink, now)
	return dto.NewOrderTransitionResponse(res.order, res.change.PreviousStatus, documentID, "Documento desvinculado del pedido"), nil
}

// RequestInvoice marca el pedido como esperando la factura del proveedor.
func (uc *FlowUseCase) RequestInvoice(ctx context.Context, userID, orderID string) (*dto.OrderTransitionResponse, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("order_id es obligatorio: %w", domain.ErrInvalidInput)
	}
	now := uc.now()

	var res transitionResult
	err := uc.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, _ repository.DocumentRepository) error {
		order, err := orderRepo.GetForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		change, err := orderflow.ApplyRequestInvoice(order, now)
		if err != nil {
			return err
		}
		if err := orderRepo.UpdateTransition(ctx, order, change.PreviousStatus); err != nil {
			return err
		}
		res = transitionResult{order: order, change: change}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.effects.OrderStatusChanged(ctx, statusEvent(res.order, ports.SourceRequestInvoice, now))
	return dto.NewOrderTransitionResponse(res.order, res.change.PreviousStatus, "", "Factura solicitada al proveedor"), nil
}

// lockLinkableDocument bloquea el documento y verifica que se pueda vincular.
func lockLinkableDocument(ctx context.Context, docRepo repository.DocumentRepository, documentID, userID string) (*entity.Document, error) {
	doc, err := docRepo.GetForUpdate(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	switch doc.Status {
	case entity.DocumentStatusAssigned:
		return nil, fmt.Errorf("el documento ya está vinculado a un pedido: %w", domain.ErrConflict)
	case entity.DocumentStatusProcessing:
		return nil, fmt.Errorf("el documento se está procesando: %w", domain.ErrConflict)
	}
	return doc, nil
}

func link(
	ctx context.Context,
	orderRepo repository.OrderRepository,
	docRepo repository.DocumentRepository,
	order *entity.Order,
	doc *entity.Document,
	opts orderflow.LinkOptions,
	now time.Time,
) (transitionResult, error) {
	change, err := orderflow.ApplyLink(order, doc, opts, now)
	if err != nil {
		return transitionResult{}, err
	}
	if err := orderRepo.UpdateTransition(ctx, order, change.PreviousStatus); err != nil {
		return transitionResult{}, err
	}
	orderID := order.ID
	doc.OrderID = &orderID
	doc.Status = entity.DocumentStatusAssigned
	doc.UpdatedAt = now
	if doc.ProviderID == nil && order.ProviderID != "" {
		providerID := order.ProviderID
		doc.ProviderID = &providerID
	}
	if err := docRepo.UpdateLink(ctx, doc); err != nil {
		return transitionResult{}, err
	}
	return transitionResult{order: order, change: change, doc: doc}, nil
}

func (uc *FlowUseCase) afterTransition(ctx context.Context, res transitionResult, action, source string, now time.Time) {
	uc.effects.OrderStatusChanged(ctx, statusEvent(res.order, source, now))
	uc.effects.LinkRecorded(ctx, entity.LinkHistory{
		DocumentID:     res.doc.ID,
		OrderID:        res.order.ID,
		Action:         action,
		PreviousStatus: res.change.PreviousStatus,
		NewStatus:      res.change.NewStatus,
		Source:         source,
		CreatedAt:      now,
	})
}

func statusEvent(o *entity.Order, source string, now time.Time) ports.OrderStatusEvent {
	return ports.OrderStatusEvent{
		OrderID:    o.ID,
		Status:     o.Status,
		ReceiptURL: o.ReceiptURL,
		Timestamp:  now,
		Source:     source,
	}
}

func linkMessage(doc *entity.Document) string {
	if doc.DocumentType == entity.DocumentTypePaymentProof {
		return "Comprobante de pago vinculado; pedido pagado"
	}
	return "Factura vinculada al pedido"
}
