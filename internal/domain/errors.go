package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrNoPendingOrder    = errors.New("no hay pedido pendiente de factura para el proveedor")
)

// Not-found tipados; errors.Is(err, ErrNotFound) sigue siendo verdadero.
var (
	ErrOrderNotFound    = fmt.Errorf("pedido: %w", ErrNotFound)
	ErrProviderNotFound = fmt.Errorf("proveedor: %w", ErrNotFound)
	ErrDocumentNotFound = fmt.Errorf("documento: %w", ErrNotFound)
)
