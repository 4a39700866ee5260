package catalog

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

// ExportUseCase exporta el catálogo del usuario a planilla.
type ExportUseCase struct {
	catalogRepo repository.CatalogRepository
	exporter    ports.CatalogExporter
}

// NewExportUseCase construye el caso de uso.
func NewExportUseCase(catalogRepo repository.CatalogRepository, exporter ports.CatalogExporter) *ExportUseCase {
	return &ExportUseCase{catalogRepo: catalogRepo, exporter: exporter}
}

// ExportXLSX devuelve el catálogo en formato XLSX. Un catálogo vacío produce una planilla
// solo con encabezados.
func (uc *ExportUseCase) ExportXLSX(ctx context.Context, userID string) ([]byte, error) {
	entries, err := uc.catalogRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.exporter.ExportCatalog(ctx, entries)
}
