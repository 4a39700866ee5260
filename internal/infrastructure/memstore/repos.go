package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

var (
	_ repository.OrderRepository        = (*OrderRepo)(nil)
	_ repository.ProviderRepository     = (*ProviderRepo)(nil)
	_ repository.DocumentRepository     = (*DocumentRepo)(nil)
	_ repository.CatalogRepository      = (*CatalogRepo)(nil)
	_ repository.PriceHistoryRepository = (*PriceHistoryRepo)(nil)
	_ repository.LinkHistoryRepository  = (*LinkHistoryRepo)(nil)
)

// ── Pedidos ───────────────────────────────────────────────────────────────────

// OrderRepo pedidos en memoria.
type OrderRepo struct{ s *Store }

func (r *OrderRepo) GetByID(_ context.Context, id, userID string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	return &o, nil
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id, userID string) (*entity.Order, error) {
	return r.GetByID(ctx, id, userID)
}

func (r *OrderRepo) FindLatestWithoutReceipt(_ context.Context, userID, providerID string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *entity.Order
	for _, o := range r.s.orders {
		if o.UserID != userID || o.ProviderID != providerID || o.ReceiptURL != nil {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			found := o
			best = &found
		}
	}
	return best, nil
}

func (r *OrderRepo) UpdateTransition(_ context.Context, order *entity.Order, expectedStatus string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.orders[order.ID]
	if !ok || cur.UserID != order.UserID || cur.Status != expectedStatus {
		return domain.ErrConflict
	}
	r.s.orders[order.ID] = *order
	return nil
}

func (r *OrderRepo) UpdateSettlement(_ context.Context, id, userID string, amount decimal.Decimal, currency string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.UserID != userID {
		return domain.ErrOrderNotFound
	}
	o.ReplaceTotal(amount)
	o.Currency = currency
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

// ── Proveedores ───────────────────────────────────────────────────────────────

// ProviderRepo proveedores en memoria.
type ProviderRepo struct{ s *Store }

func (r *ProviderRepo) GetByID(_ context.Context, id, userID string) (*entity.Provider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.providers[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return &p, nil
}

func (r *ProviderRepo) ListWithTaxID(_ context.Context, userID string) ([]entity.Provider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.Provider, 0)
	for _, p := range r.s.providers {
		if p.UserID == userID && p.TaxID != "" {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b entity.Provider) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// ── Documentos ────────────────────────────────────────────────────────────────

// DocumentRepo documentos y líneas en memoria.
type DocumentRepo struct{ s *Store }

func (r *DocumentRepo) GetByID(_ context.Context, id, userID string) (*entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documents[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	return &d, nil
}

func (r *DocumentRepo) GetForUpdate(ctx context.Context, id, userID string) (*entity.Document, error) {
	return r.GetByID(ctx, id, userID)
}

func (r *DocumentRepo) UpdateStatus(_ context.Context, id, status string) error {
	return r.modify(id, func(d *entity.Document) { d.Status = status })
}

func (r *DocumentRepo) SaveExtraction(_ context.Context, doc *entity.Document) error {
	return r.modify(doc.ID, func(d *entity.Document) {
		d.RawText = doc.RawText
		d.OCRConfidence = doc.OCRConfidence
		d.ExtractedData = doc.ExtractedData
		d.ProviderID = doc.ProviderID
		d.Status = doc.Status
	})
}

func (r *DocumentRepo) UpdateLink(_ context.Context, doc *entity.Document) error {
	return r.modify(doc.ID, func(d *entity.Document) {
		d.OrderID = doc.OrderID
		d.ProviderID = doc.ProviderID
		d.Status = doc.Status
	})
}

func (r *DocumentRepo) ListUnlinkedProcessed(_ context.Context, userID string) ([]entity.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.Document, 0)
	for _, d := range r.s.documents {
		if d.UserID == userID && d.ProviderID == nil && d.Status == entity.DocumentStatusProcessed {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b entity.Document) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (r *DocumentRepo) SetProvider(_ context.Context, id, providerID string) error {
	return r.modify(id, func(d *entity.Document) { d.ProviderID = &providerID })
}

func (r *DocumentRepo) ListLineItems(_ context.Context, documentID string) ([]entity.DocumentLineItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.lineItems[documentID]), nil
}

func (r *DocumentRepo) ReplaceLineItems(_ context.Context, documentID string, items []entity.DocumentLineItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := make([]entity.DocumentLineItem, 0, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.DocumentID = documentID
		it.Position = i
		stored = append(stored, it)
	}
	r.s.lineItems[documentID] = stored
	return nil
}

func (r *DocumentRepo) modify(id string, fn func(*entity.Document)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documents[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	fn(&d)
	d.UpdatedAt = r.s.now()
	r.s.documents[id] = d
	return nil
}

// ── Catálogo ──────────────────────────────────────────────────────────────────

// CatalogRepo ítems de stock en memoria.
type CatalogRepo struct{ s *Store }

func (r *CatalogRepo) ListByUser(_ context.Context, userID string) ([]entity.CatalogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.catalogByUser(userID), nil
}

func (r *CatalogRepo) Create(_ context.Context, e *entity.CatalogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := r.s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	r.s.catalog[e.ID] = *e
	return nil
}

func (r *CatalogRepo) Update(_ context.Context, e *entity.CatalogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.catalog[e.ID]
	if !ok || cur.UserID != e.UserID {
		return domain.ErrNotFound
	}
	cur.Unit = e.Unit
	cur.Quantity = e.Quantity
	cur.LastUnitPrice = e.LastUnitPrice
	cur.PreferredProviderID = e.PreferredProviderID
	cur.UpdatedAt = r.s.now()
	e.UpdatedAt = cur.UpdatedAt
	r.s.catalog[e.ID] = cur
	return nil
}

// PriceHistoryRepo historial de precios en memoria.
type PriceHistoryRepo struct{ s *Store }

func (r *PriceHistoryRepo) Append(_ context.Context, h *entity.PriceHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.RecordedAt.IsZero() {
		h.RecordedAt = r.s.now()
	}
	r.s.prices = append(r.s.prices, *h)
	return nil
}

// LinkHistoryRepo historial de vinculaciones en memoria.
type LinkHistoryRepo struct{ s *Store }

func (r *LinkHistoryRepo) Append(_ context.Context, h *entity.LinkHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = r.s.now()
	}
	r.s.history = append(r.s.history, *h)
	return nil
}
