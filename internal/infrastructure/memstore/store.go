// Package memstore implementa los puertos de persistencia en memoria. Se usa con
// STORAGE_DRIVER=memory para desarrollo local sin PostgreSQL y como doble en los tests
// de casos de uso. Las transacciones se serializan y hacen rollback restaurando una copia.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

// Store datos en memoria de todos los agregados.
type Store struct {
	txMu sync.Mutex // una transacción a la vez; equivale al bloqueo de fila
	mu   sync.Mutex

	orders    map[string]entity.Order
	providers map[string]entity.Provider
	documents map[string]entity.Document
	lineItems map[string][]entity.DocumentLineItem
	catalog   map[string]entity.CatalogEntry
	prices    []entity.PriceHistory
	history   []entity.LinkHistory

	now func() time.Time
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		orders:    map[string]entity.Order{},
		providers: map[string]entity.Provider{},
		documents: map[string]entity.Document{},
		lineItems: map[string][]entity.DocumentLineItem{},
		catalog:   map[string]entity.CatalogEntry{},
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj usado en created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ── Repositorios ──────────────────────────────────────────────────────────────

func (s *Store) Orders() *OrderRepo { return &OrderRepo{s: s} }
func (s *Store) Providers() *ProviderRepo { return &ProviderRepo{s: s} }
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s: s} }
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }
func (s *Store) Prices() *PriceHistoryRepo { return &PriceHistoryRepo{s: s} }
func (s *Store) LinkHistory() *LinkHistoryRepo { return &LinkHistoryRepo{s: s} }

// ── Transacciones ─────────────────────────────────────────────────────────────

type snapshot struct {
	orders    map[string]entity.Order
	documents map[string]entity.Document
	lineItems map[string][]entity.DocumentLineItem
	catalog   map[string]entity.CatalogEntry
	prices    []entity.PriceHistory
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		orders:    maps.Clone(s.orders),
		documents: maps.Clone(s.documents),
		lineItems: maps.Clone(s.lineItems),
		catalog:   maps.Clone(s.catalog),
		prices:    slices.Clone(s.prices),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.documents = snap.documents
	s.lineItems = snap.lineItems
	s.catalog = snap.catalog
	s.prices = snap.prices
}

func (s *Store) inTx(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// RunOrder ejecuta fn como una transacción de pedidos.
func (s *Store) RunOrder(ctx context.Context, fn func(
	orderRepo repository.OrderRepository,
	docRepo repository.DocumentRepository,
) error) error {
	return s.inTx(ctx, func() error { return fn(s.Orders(), s.Documents()) })
}

// RunCatalog ejecuta fn como una transacción de catálogo.
func (s *Store) RunCatalog(ctx context.Context, fn func(
	catalogRepo repository.CatalogRepository,
	priceRepo repository.PriceHistoryRepository,
	docRepo repository.DocumentRepository,
) error) error {
	return s.inTx(ctx, func() error { return fn(s.Catalog(), s.Prices(), s.Documents()) })
}

// ── Carga y lectura directa (seed de desarrollo y aserciones de tests) ──────────

// PutOrder inserta o reemplaza un pedido.
func (s *Store) PutOrder(o entity.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// PutProvider inserta o reemplaza un proveedor.
func (s *Store) PutProvider(p entity.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
}

// PutDocument inserta o reemplaza un documento.
func (s *Store) PutDocument(d entity.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[d.ID] = d
}

// PutLineItems reemplaza las líneas de un documento.
func (s *Store) PutLineItems(documentID string, items []entity.DocumentLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineItems[documentID] = slices.Clone(items)
}

// PutCatalogEntry inserta o reemplaza un ítem de catálogo.
func (s *Store) PutCatalogEntry(e entity.CatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.catalog[e.ID] = e
}

// Order devuelve una copia del pedido.
func (s *Store) Order(id string) (entity.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

// Document devuelve una copia del documento.
func (s *Store) Document(id string) (entity.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	return d, ok
}

// LineItems devuelve las líneas guardadas del documento.
func (s *Store) LineItems(documentID string) []entity.DocumentLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lineItems[documentID])
}

// CatalogEntries ítems del usuario en orden de creación.
func (s *Store) CatalogEntries(userID string) []entity.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogByUser(userID)
}

// PriceHistory registros de precio en orden de alta.
func (s *Store) PriceHistory() []entity.PriceHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.prices)
}

// LinkHistoryRows registros de vinculación en orden de alta.
func (s *Store) LinkHistoryRows() []entity.LinkHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Store) catalogByUser(userID string) []entity.CatalogEntry {
	out := make([]entity.CatalogEntry, 0)
	for _, e := range s.catalog {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b entity.CatalogEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}
