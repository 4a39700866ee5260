package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/conciliador-api/internal/application/dto"
	"github.com/jhoicas/conciliador-api/internal/domain"
	domcatalog "github.com/jhoicas/conciliador-api/internal/domain/catalog"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
	"github.com/jhoicas/conciliador-api/pkg/taxid"
)

// Motivos de líneas omitidas.
const (
	SkipReasonEmptyName = "línea sin nombre de producto"
)

// ReconcileUseCase incorpora las líneas de una factura al catálogo del usuario.
type ReconcileUseCase struct {
	txRunner     CatalogTxRunner
	providerRepo repository.ProviderRepository
	now          func() time.Time
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(txRunner CatalogTxRunner, providerRepo repository.ProviderRepository) *ReconcileUseCase {
	return &ReconcileUseCase{txRunner: txRunner, providerRepo: providerRepo, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *ReconcileUseCase) WithClock(now func() time.Time) *ReconcileUseCase {
	uc.now = now
	return uc
}

// Reconcile resuelve el proveedor por CUIT, re-vincula los documentos procesados sin
// proveedor que lo mencionan y crea o actualiza un ítem de catálogo por cada línea.
// Todo ocurre en una transacción; una línea sin nombre se omite sin abortar el resto.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, userID string, in dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	if taxid.Normalize(in.TaxID) == "" {
		return nil, fmt.Errorf("tax_id es obligatorio: %w", domain.ErrInvalidInput)
	}
	providers, err := uc.providerRepo.ListWithTaxID(ctx, userID)
	if err != nil {
		return nil, err
	}
	provider := domcatalog.ResolveProvider(in.TaxID, providers)
	if provider == nil {
		return nil, domain.ErrProviderNotFound
	}

	res := &dto.ReconcileResponse{
		Success:           true,
		ProviderID:        provider.ID,
		ProviderName:      provider.Name,
		RelinkedDocuments: []string{},
		Skipped:           []dto.SkippedLine{},
		Entries:           []dto.CatalogEntryDTO{},
	}
	now := uc.now()

	err = uc.txRunner.RunCatalog(ctx, func(
		catalogRepo repository.CatalogRepository,
		priceRepo repository.PriceHistoryRepository,
		docRepo repository.DocumentRepository,
	) error {
		relinked, err := relinkDocuments(ctx, docRepo, userID, provider)
		if err != nil {
			return err
		}
		for _, d := range relinked {
			res.RelinkedDocuments = append(res.RelinkedDocuments, d.ID)
		}

		items := dto.LineItemsToEntities(in.LineItems)
		var sourceDoc *string
		if len(items) == 0 && in.FromDocuments {
			items, sourceDoc, err = storedItems(ctx, docRepo, relinked)
			if err != nil {
				return err
			}
		}

		entries, err := catalogRepo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for i, item := range items {
			if strings.TrimSpace(item.ProductName) == "" {
				res.Skipped = append(res.Skipped, dto.SkippedLine{Index: i, Reason: SkipReasonEmptyName})
				continue
			}
			out, created, err := upsertEntry(ctx, catalogRepo, priceRepo, &entries, userID, provider.ID, sourceDoc, item, now)
			if err != nil {
				return fmt.Errorf("línea %d (%s): %w", i, item.ProductName, err)
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
			res.Entries = append(res.Entries, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Message = fmt.Sprintf("Catálogo actualizado: %d nuevos, %d actualizados, %d omitidos", res.Created, res.Updated, len(res.Skipped))
	return res, nil
}

// relinkDocuments asigna el proveedor a los documentos procesados sin proveedor cuyo CUIT
// extraído coincide.
func relinkDocuments(ctx context.Context, docRepo repository.DocumentRepository, userID string, provider *entity.Provider) ([]entity.Document, error) {
	docs, err := docRepo.ListUnlinkedProcessed(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []entity.Document
	for _, d := range docs {
		if d.ExtractedData == nil || d.ExtractedData.TaxID == nil {
			continue
		}
		if !taxid.Matches(*d.ExtractedData.TaxID, provider.TaxID) {
			continue
		}
		if err := docRepo.SetProvider(ctx, d.ID, provider.ID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// storedItems junta las líneas guardadas de los documentos re-vinculados. Si todas vienen de
// un único documento se devuelve su id para el historial de precios.
func storedItems(ctx context.Context, docRepo repository.DocumentRepository, docs []entity.Document) ([]entity.LineItem, *string, error) {
	var items []entity.LineItem
	var sources []string
	for i := range docs {
		stored, err := docRepo.ListLineItems(ctx, docs[i].ID)
		if err != nil {
			return nil, nil, err
		}
		if len(stored) > 0 {
			sources = append(sources, docs[i].ID)
		}
		for _, s := range stored {
			items = append(items, s.AsLineItem())
		}
	}
	if len(sources) != 1 {
		return items, nil, nil
	}
	return items, &sources[0], nil
}

func upsertEntry(
	ctx context.Context,
	catalogRepo repository.CatalogRepository,
	priceRepo repository.PriceHistoryRepository,
	entries *[]entity.CatalogEntry,
	userID, providerID string,
	documentID *string,
	item entity.LineItem,
	now time.Time,
) (dto.CatalogEntryDTO, bool, error) {
	pid := providerID
	match, _ := domcatalog.Match(item.ProductName, *entries)
	if match == nil {
		e := &entity.CatalogEntry{
			UserID:              userID,
			ProductName:         strings.TrimSpace(item.ProductName),
			Unit:                item.Unit,
			Quantity:            item.Quantity,
			LastUnitPrice:       item.UnitPrice,
			PreferredProviderID: &pid,
			Category:            entity.DefaultCatalogCategory,
			RestockFrequency:    entity.DefaultRestockFrequency,
		}
		if err := catalogRepo.Create(ctx, e); err != nil {
			return dto.CatalogEntryDTO{}, false, err
		}
		*entries = append(*entries, *e)
		if err := appendPrice(ctx, priceRepo, e.ID, pid, documentID, item, now); err != nil {
			return dto.CatalogEntryDTO{}, false, err
		}
		out := dto.CatalogEntryFromEntity(e)
		out.Created = true
		out.PriceChanged = true
		return out, true, nil
	}

	priceChanged := !match.LastUnitPrice.Equal(item.UnitPrice)
	match.Unit = item.Unit
	match.Quantity = item.Quantity
	match.LastUnitPrice = item.UnitPrice
	match.PreferredProviderID = &pid
	if err := catalogRepo.Update(ctx, match); err != nil {
		return dto.CatalogEntryDTO{}, false, err
	}
	if priceChanged {
		if err := appendPrice(ctx, priceRepo, match.ID, pid, documentID, item, now); err != nil {
			return dto.CatalogEntryDTO{}, false, err
		}
	}
	out := dto.CatalogEntryFromEntity(match)
	out.PriceChanged = priceChanged
	return out, false, nil
}

func appendPrice(ctx context.Context, priceRepo repository.PriceHistoryRepository, entryID, providerID string, documentID *string, item entity.LineItem, now time.Time) error {
	return priceRepo.Append(ctx, &entity.PriceHistory{
		StockItemID: entryID,
		ProviderID:  &providerID,
		DocumentID:  documentID,
		UnitPrice:   item.UnitPrice,
		RecordedAt:  now,
	})
}
