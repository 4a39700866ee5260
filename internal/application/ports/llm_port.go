package ports

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// LineItemExtractor define el puerto de salida para extraer líneas de detalle del texto OCR
// con un modelo de lenguaje. Cualquier adaptador (Anthropic, mock) debe implementarlo.
// El contexto debe llevar un timeout para evitar bloqueos en llamadas externas.
type LineItemExtractor interface {
	ExtractLineItems(ctx context.Context, rawText string) ([]entity.LineItem, error)
}
