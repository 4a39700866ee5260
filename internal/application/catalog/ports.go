package catalog

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

// CatalogTxRunner ejecuta la conciliación completa en una transacción.
type CatalogTxRunner interface {
	RunCatalog(ctx context.Context, fn func(
		catalogRepo repository.CatalogRepository,
		priceRepo repository.PriceHistoryRepository,
		docRepo repository.DocumentRepository,
	) error) error
}
