package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/application/sideeffect"
	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/extraction"
	"github.com/jhoicas/conciliador-api/internal/domain/orderflow"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
	"github.com/jhoicas/conciliador-api/internal/domain/validation"
	"github.com/jhoicas/conciliador-api/pkg/taxid"
)

// DefaultLineItemTimeout tiempo máximo para la extracción de líneas con el modelo de lenguaje.
const DefaultLineItemTimeout = 20 * time.Second

// Advertencias del procesamiento (no bloquean).
const (
	WarningInvalidCUIT       = "el CUIT extraído tiene dígito verificador inválido"
	WarningLineItemsFailed   = "no se pudieron extraer las líneas de detalle"
	WarningTransitionSkipped = "el pedido no admite pasar a factura_recibida desde su estado actual"
)

// ProcessUseCase convierte el texto OCR (o el XML de una factura electrónica) de un documento
// en datos extraídos y líneas de detalle, y valida contra el pedido cuando se indica uno.
type ProcessUseCase struct {
	docRepo      repository.DocumentRepository
	orderRepo    repository.OrderRepository
	providerRepo repository.ProviderRepository
	extractor    *extraction.Extractor
	engine       *validation.Engine
	xmlReader    ports.StructuredInvoiceReader // opcional
	lineItems    ports.LineItemExtractor       // opcional
	effects      *sideeffect.Dispatcher
	llmTimeout   time.Duration
	now          func() time.Time
}

// NewProcessUseCase construye el caso de uso. xmlReader, lineItems y effects pueden ser nil.
func NewProcessUseCase(
	docRepo repository.DocumentRepository,
	orderRepo repository.OrderRepository,
	providerRepo repository.ProviderRepository,
	extractor *extraction.Extractor,
	engine *validation.Engine,
	xmlReader ports.StructuredInvoiceReader,
	lineItems ports.LineItemExtractor,
	effects *sideeffect.Dispatcher,
) *ProcessUseCase {
	return &ProcessUseCase{
		docRepo:      docRepo,
		orderRepo:    orderRepo,
		providerRepo: providerRepo,
		extractor:    extractor,
		engine:       engine,
		xmlReader:    xmlReader,
		lineItems:    lineItems,
		effects:      effects,
		llmTimeout:   DefaultLineItemTimeout,
		now:          time.Now,
	}
}

// WithLineItemTimeout cambia el timeout de la extracción de líneas.
func (uc *ProcessUseCase) WithLineItemTimeout(d time.Duration) *ProcessUseCase {
	if d > 0 {
		uc.llmTimeout = d
	}
	return uc
}

// WithClock reemplaza el reloj (tests).
func (uc *ProcessUseCase) WithClock(now func() time.Time) *ProcessUseCase {
	uc.now = now
	return uc
}

// Process extrae los campos del documento, guarda el resultado y, si hay pedido esperado,
// devuelve el veredicto de validación y marca el pedido como factura_recibida.
func (uc *ProcessUseCase) Process(ctx context.Context, userID, documentID string, in dto.ProcessDocumentRequest) (*dto.ProcessDocumentResponse, error) {
	if c := in.OCRConfidence; c != nil && (*c < 0 || *c > 1) {
		return nil, fmt.Errorf("ocr_confidence debe estar entre 0 y 1: %w", domain.ErrInvalidInput)
	}
	doc, err := uc.docRepo.GetByID(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	if doc.Status == entity.DocumentStatusAssigned {
		return nil, fmt.Errorf("el documento ya está vinculado; desvincular antes de reprocesar: %w", domain.ErrConflict)
	}
	raw, confidence := in.RawText, doc.OCRConfidence
	if strings.TrimSpace(raw) == "" && doc.RawText != nil {
		raw = *doc.RawText
	} else if in.OCRConfidence != nil {
		confidence = *in.OCRConfidence
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("raw_text vacío: %w", domain.ErrInvalidInput)
	}

	// Pedido y proveedor de contexto (opcionales).
	var order *entity.Order
	if in.OrderID != "" {
		order, err = uc.orderRepo.GetByID(ctx, in.OrderID, userID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, domain.ErrOrderNotFound
		}
	}
	providerID := in.ProviderID
	if providerID == "" && doc.ProviderID != nil {
		providerID = *doc.ProviderID
	}
	if providerID == "" && order != nil {
		providerID = order.ProviderID
	}
	var provider *entity.Provider
	if providerID != "" {
		provider, err = uc.providerRepo.GetByID(ctx, providerID, userID)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, domain.ErrProviderNotFound
		}
	}

	if err := uc.docRepo.UpdateStatus(ctx, doc.ID, entity.DocumentStatusProcessing); err != nil {
		return nil, err
	}
	res, err := uc.extract(ctx, doc, raw, confidence, in.LineItems, order, provider)
	if err != nil {
		uc.markFailed(ctx, doc.ID)
		return nil, err
	}
	return res, nil
}

func (uc *ProcessUseCase) extract(
	ctx context.Context,
	doc *entity.Document,
	raw string,
	confidence float64,
	userItems []dto.LineItemDTO,
	order *entity.Order,
	provider *entity.Provider,
) (*dto.ProcessDocumentResponse, error) {
	hint := extraction.Hint{}
	if provider != nil {
		hint.ProviderTaxID = provider.TaxID
	}
	if order != nil {
		hint.Currency = order.Currency
	}

	var (
		data     entity.ExtractedInvoiceData
		xmlItems []entity.LineItem
		warnings []string
	)
	if uc.xmlReader != nil && uc.xmlReader.CanRead(raw) {
		var err error
		data, xmlItems, err = uc.xmlReader.Read(raw)
		if err != nil {
			return nil, fmt.Errorf("factura electrónica ilegible: %v: %w", err, domain.ErrInvalidInput)
		}
	} else {
		data = uc.extractor.Extract(raw, confidence, hint)
	}
	if data.TaxID != nil && len(*data.TaxID) == 11 && taxid.ValidCUIT(*data.TaxID) != nil {
		warnings = append(warnings, WarningInvalidCUIT)
	}

	items := dto.LineItemsToEntities(userItems)
	switch {
	case len(items) > 0:
	case len(xmlItems) > 0:
		items = xmlItems
	case uc.lineItems != nil:
		llmCtx, cancel := context.WithTimeout(ctx, uc.llmTimeout)
		extracted, err := uc.lineItems.ExtractLineItems(llmCtx, raw)
		cancel()
		if err != nil {
			warnings = append(warnings, WarningLineItemsFailed)
		} else {
			items = extracted
		}
	}

	doc.RawText = &raw
	doc.OCRConfidence = data.OCRConfidence
	doc.ExtractedData = &data
	doc.Status = entity.DocumentStatusProcessed
	if provider != nil {
		pid := provider.ID
		doc.ProviderID = &pid
	}
	if err := uc.docRepo.SaveExtraction(ctx, doc); err != nil {
		return nil, err
	}
	if err := uc.docRepo.ReplaceLineItems(ctx, doc.ID, toDocumentLineItems(doc.ID, items)); err != nil {
		return nil, err
	}

	res := &dto.ProcessDocumentResponse{
		Success:    true,
		Message:    "Documento procesado",
		DocumentID: doc.ID,
		Status:     doc.Status,
		Extracted:  data,
		LineItems:  lineItemDTOs(items),
		Warnings:   warnings,
	}
	if order == nil {
		return res, nil
	}

	verdict := uc.engine.Validate(validation.Input{
		ExpectedAmount: order.ExpectedAmount(),
		ProviderTaxID:  providerTaxID(provider),
		Extracted:      data,
	})
	res.Verdict = &verdict
	res.OrderStatus = order.Status

	if doc.DocumentType == entity.DocumentTypeInvoice {
		if orderflow.CanTransition(order.Status, orderflow.EventInvoiceReceived) {
			if err := uc.markInvoiceReceived(ctx, order, data); err != nil {
				if !errors.Is(err, domain.ErrConflict) {
					return nil, err
				}
				res.Warnings = append(res.Warnings, WarningTransitionSkipped)
			} else {
				res.OrderStatus = order.Status
			}
		} else {
			res.Warnings = append(res.Warnings, WarningTransitionSkipped)
		}
	}
	if !verdict.IsValid {
		uc.effects.DiscrepancyDetected(ctx, ports.DiscrepancyNotification{
			UserID:          order.UserID,
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			Discrepancies:   verdict.Discrepancies,
			Recommendations: verdict.Recommendations,
		})
	}
	return res, nil
}

func (uc *ProcessUseCase) markInvoiceReceived(ctx context.Context, order *entity.Order, data entity.ExtractedInvoiceData) error {
	now := uc.now()
	change, err := orderflow.ApplyInvoiceReceived(order, data, now)
	if err != nil {
		return err
	}
	if err := uc.orderRepo.UpdateTransition(ctx, order, change.PreviousStatus); err != nil {
		return err
	}
	uc.effects.OrderStatusChanged(ctx, ports.OrderStatusEvent{
		OrderID:    order.ID,
		Status:     order.Status,
		ReceiptURL: order.ReceiptURL,
		Timestamp:  now,
		Source:     ports.SourceProcessing,
	})
	return nil
}

// markFailed deja el documento en error; se ejecuta aunque el request se haya cancelado.
func (uc *ProcessUseCase) markFailed(ctx context.Context, documentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = uc.docRepo.UpdateStatus(ctx, documentID, entity.DocumentStatusError)
}

func providerTaxID(p *entity.Provider) string {
	if p == nil {
		return ""
	}
	return p.TaxID
}

func toDocumentLineItems(documentID string, items []entity.LineItem) []entity.DocumentLineItem {
	out := make([]entity.DocumentLineItem, 0, len(items))
	for i, it := range items {
		out = append(out, entity.DocumentLineItem{
			DocumentID:  documentID,
			Position:    i,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

func lineItemDTOs(items []entity.LineItem) []dto.LineItemDTO {
	out := make([]dto.LineItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LineItemFromEntity(it))
	}
	return out
}
