package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/conciliador-api/internal/domain"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo documentos subidos y sus líneas de detalle (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, user_id, provider_id, order_id, file_url, document_type, raw_text,
	COALESCE(ocr_confidence, 0), extracted_data, status, created_at, updated_at`

func scanDocument(row rowScanner) (*entity.Document, error) {
	var d entity.Document
	err := row.Scan(
		&d.ID, &d.UserID, &d.ProviderID, &d.OrderID, &d.FileURL, &d.DocumentType, &d.RawText,
		&d.OCRConfidence, &d.ExtractedData, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID obtiene el documento del usuario. (nil, nil) si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id, userID string) (*entity.Document, error) {
	query := `SELECT` + documentColumns + ` FROM documents WHERE id = $1 AND user_id = $2`
	d, err := scanDocument(r.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// GetForUpdate obtiene el documento y bloquea la fila (SELECT FOR UPDATE).
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id, userID string) (*entity.Document, error) {
	query := `SELECT` + documentColumns + ` FROM documents WHERE id = $1 AND user_id = $2 FOR UPDATE`
	d, err := scanDocument(r.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document for update: %w", asConflict(err))
	}
	return d, nil
}

// UpdateStatus cambia solo el estado.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.q.Exec(ctx, `UPDATE documents SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// SaveExtraction guarda el resultado del procesamiento.
func (r *DocumentRepo) SaveExtraction(ctx context.Context, d *entity.Document) error {
	query := `
		UPDATE documents
		SET raw_text       = $2,
		    ocr_confidence = $3,
		    extracted_data = $4,
		    provider_id    = COALESCE($5, provider_id),
		    status         = $6,
		    updated_at     = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, d.ID, d.RawText, d.OCRConfidence, d.ExtractedData, d.ProviderID, d.Status)
	if err != nil {
		return fmt.Errorf("save document extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// UpdateLink guarda pedido, proveedor y estado tras vincular o desvincular.
func (r *DocumentRepo) UpdateLink(ctx context.Context, d *entity.Document) error {
	query := `
		UPDATE documents
		SET order_id = $2, provider_id = $3, status = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, d.ID, d.OrderID, d.ProviderID, d.Status)
	if err != nil {
		return fmt.Errorf("update document link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ListUnlinkedProcessed documentos procesados sin proveedor, del más antiguo al más nuevo.
func (r *DocumentRepo) ListUnlinkedProcessed(ctx context.Context, userID string) ([]entity.Document, error) {
	query := `SELECT` + documentColumns + `
		FROM documents
		WHERE user_id = $1 AND provider_id IS NULL AND status = $2
		ORDER BY created_at
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, userID, entity.DocumentStatusProcessed)
	if err != nil {
		return nil, fmt.Errorf("list unlinked documents: %w", err)
	}
	defer rows.Close()

	var out []entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// SetProvider asigna el proveedor al documento.
func (r *DocumentRepo) SetProvider(ctx context.Context, id, providerID string) error {
	_, err := r.q.Exec(ctx, `UPDATE documents SET provider_id = $2, updated_at = now() WHERE id = $1`, id, providerID)
	if err != nil {
		return fmt.Errorf("set document provider: %w", err)
	}
	return nil
}

// ListLineItems líneas del documento en orden.
func (r *DocumentRepo) ListLineItems(ctx context.Context, documentID string) ([]entity.DocumentLineItem, error) {
	query := `
		SELECT id, document_id, position, product_name, quantity, COALESCE(unit, ''), unit_price
		FROM document_line_items
		WHERE document_id = $1
		ORDER BY position`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var out []entity.DocumentLineItem
	for rows.Next() {
		var it entity.DocumentLineItem
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.Position, &it.ProductName, &it.Quantity, &it.Unit, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ReplaceLineItems borra las líneas anteriores e inserta las nuevas con un batch.
func (r *DocumentRepo) ReplaceLineItems(ctx context.Context, documentID string, items []entity.DocumentLineItem) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM document_line_items WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.New().String()
		}
		batch.Queue(`
			INSERT INTO document_line_items (id, document_id, position, product_name, quantity, unit, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, documentID, i, it.ProductName, it.Quantity, nullIfEmpty(it.Unit), it.UnitPrice)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert line items: %w", err)
	}
	return nil
}
