package repository

import (
	"context"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia de documentos y sus líneas.
type DocumentRepository interface {
	GetByID(ctx context.Context, id, userID string) (*entity.Document, error)
	GetForUpdate(ctx context.Context, id, userID string) (*entity.Document, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// SaveExtraction guarda texto crudo, confianza, datos extraídos, proveedor y estado.
	SaveExtraction(ctx context.Context, doc *entity.Document) error
	// UpdateLink guarda order_id, provider_id y estado.
	UpdateLink(ctx context.Context, doc *entity.Document) error
	// ListUnlinkedProcessed documentos procesados del usuario sin proveedor asignado.
	ListUnlinkedProcessed(ctx context.Context, userID string) ([]entity.Document, error)
	SetProvider(ctx context.Context, id, providerID string) error
	ListLineItems(ctx context.Context, documentID string) ([]entity.DocumentLineItem, error)
	ReplaceLineItems(ctx context.Context, documentID string, items []entity.DocumentLineItem) error
}
