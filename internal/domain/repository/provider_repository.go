package repository

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// ProviderRepository lectura de proveedores del usuario.
type ProviderRepository interface {
	GetByID(ctx context.Context, id, userID string) (*entity.Provider, error)
	// ListWithTaxID proveedores con CUIT cargado, del más reciente al más antiguo.
	ListWithTaxID(ctx context.Context, userID string) ([]entity.Provider, error)
}
