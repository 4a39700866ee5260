// Package pdf genera el comprobante de datos de pago de un pedido.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Proveedor            │  N° Pedido + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FACTURA: número (si hay factura vinculada)                  │
//	│  MONTO: moneda + importe formateado                          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  MEDIO DE PAGO: método + alias / cuenta                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  QR con el mensaje de pago + texto para compartir            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/domain/settlement"
)

var _ ports.SettlementSlipRenderer = (*SlipRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// SlipRenderer implementa ports.SettlementSlipRenderer usando Maroto v2.
type SlipRenderer struct {
	now func() time.Time
}

// NewSlipRenderer construye el generador.
func NewSlipRenderer() *SlipRenderer { return &SlipRenderer{now: time.Now} }

// RenderSettlementSlip genera el PDF y devuelve sus bytes.
func (r *SlipRenderer) RenderSettlementSlip(ctx context.Context, p settlement.Payload) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Datos de pago "+p.OrderNumber, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(p, r.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	if p.InvoiceNumber != nil {
		m.AddRows(labeledRow("FACTURA", *p.InvoiceNumber))
	}
	m.AddRows(amountRow(p))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(methodRows(p)...)
	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(shareRow(p))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(p settlement.Payload, at time.Time) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(p.ProviderName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("DATOS DE PAGO", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("PEDIDO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(p.OrderNumber, p.OrderID), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Emitido: "+at.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func labeledRow(label, value string) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New(label, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(value, props.Text{Size: 10, Top: 6}),
		),
	)
}

func amountRow(p settlement.Payload) core.Row {
	return row.New(16).Add(
		col.New(6).Add(
			text.New("MONTO A PAGAR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(6).Add(
			text.New(p.Currency+" "+p.FormattedAmount, props.Text{
				Style: fontstyle.Bold, Size: 14, Align: align.Right,
				Color: colorPrimary, Top: 3, Right: 1,
			}),
		),
	)
}

// methodRows método de pago y, para transferencias, alias y cuenta.
func methodRows(p settlement.Payload) []core.Row {
	rows := []core.Row{labeledRow("MEDIO DE PAGO", p.MethodLabel)}
	if !settlement.IsTransferLike(p.Method) {
		return rows
	}
	if p.BankAlias != "" {
		rows = append(rows, labeledRow("ALIAS", p.BankAlias))
	}
	if p.BankAccountNumber != "" {
		rows = append(rows, labeledRow("CBU / CUENTA", p.BankAccountNumber))
	}
	return rows
}

// shareRow QR con el mensaje de pago y el mismo texto para copiar.
func shareRow(p settlement.Payload) core.Row {
	return row.New(50).Add(
		col.New(4).Add(code.NewQr(p.Message, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(8).Add(
			text.New(strings.ReplaceAll(p.Message, "\n", "   |   "), props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Escanea el código para compartir los datos de pago.", props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 22, Left: 3, Color: colorPrimary,
			}),
		),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
