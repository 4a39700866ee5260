// Package xlsx exporta el catálogo del usuario a una planilla Excel.
package xlsx

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/pkg/logger"
)

var _ ports.CatalogExporter = (*CatalogExporter)(nil)

const sheetName = "Catalogo"

var headers = []string{
	"Producto",
	"Unidad",
	"Último precio unitario",
	"Cantidad",
	"Categoría",
	"Frecuencia de reposición",
	"Proveedor preferido",
	"Actualizado",
}

// CatalogExporter genera el XLSX con una fila por ítem.
type CatalogExporter struct {
	log *logger.Logger
}

// NewCatalogExporter construye el exportador.
func NewCatalogExporter(log *logger.Logger) *CatalogExporter {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogExporter{log: log.Component("xlsx")}
}

// ExportCatalog devuelve los bytes del libro.
func (e *CatalogExporter) ExportCatalog(ctx context.Context, entries []entity.CatalogEntry) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, fmt.Errorf("xlsx: crear hoja: %w", err)
		}
	}
	_ = f.DeleteSheet("Sheet1")
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx: escribir encabezado: %w", err)
		}
	}

	for i, it := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		price, _ := it.LastUnitPrice.Round(2).Float64()
		qty, _ := it.Quantity.Float64()
		provider := ""
		if it.PreferredProviderID != nil {
			provider = *it.PreferredProviderID
		}

		write(1, it.ProductName)
		write(2, it.Unit)
		write(3, price)
		write(4, qty)
		write(5, it.Category)
		write(6, it.RestockFrequency)
		write(7, provider)
		write(8, it.UpdatedAt.UTC().Format("2006-01-02"))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 40)
	_ = f.SetColWidth(sheetName, "B", "B", 10)
	_ = f.SetColWidth(sheetName, "C", "D", 16)
	_ = f.SetColWidth(sheetName, "E", "F", 18)
	_ = f.SetColWidth(sheetName, "G", "G", 38)
	_ = f.SetColWidth(sheetName, "H", "H", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: escribir libro: %w", err)
	}

	e.log.Info().
		Int("rows", len(entries)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("catálogo exportado")
	return buf.Bytes(), nil
}
