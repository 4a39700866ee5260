package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LineItemDTO línea de factura o de pedido.
type LineItemDTO struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ToEntity convierte a la entidad de dominio.
func (l LineItemDTO) ToEntity() entity.LineItem {
	return entity.LineItem{ProductName: l.ProductName, Quantity: l.Quantity, Unit: l.Unit, UnitPrice: l.UnitPrice}
}

// LineItemFromEntity convierte desde la entidad.
func LineItemFromEntity(l entity.LineItem) LineItemDTO {
	return LineItemDTO{ProductName: l.ProductName, Quantity: l.Quantity, Unit: l.Unit, UnitPrice: l.UnitPrice}
}

// LineItemsToEntities convierte un slice de DTOs.
func LineItemsToEntities(in []LineItemDTO) []entity.LineItem {
	out := make([]entity.LineItem, 0, len(in))
	for _, l := range in {
		out = append(out, l.ToEntity())
	}
	return out
}
