// Package validation compara los datos extraídos de una factura contra el pedido esperado
// y produce un veredicto con confianza ajustada y discrepancias explicadas.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/pkg/taxid"
)

// Severidades de una discrepancia.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Códigos de discrepancia.
const (
	CodeAmountMismatch       = "amount_mismatch"
	CodeAmountMissing        = "amount_missing"
	CodeTaxIDMismatch        = "tax_id_mismatch"
	CodeLowOCRConfidence     = "low_ocr_confidence"
	CodeMissingInvoiceNumber = "missing_invoice_number"
	CodeCurrencyMismatch     = "currency_mismatch"
)

// Penalizaciones de confianza.
const (
	penaltySevereAmount   = 0.3
	penaltyModerateAmount = 0.1
	penaltyMissingAmount  = 0.1
	penaltyTaxID          = 0.5
	penaltyLowOCR         = 0.2
	penaltyMissingNumber  = 0.1
	penaltyCurrency       = 0.1
)

var (
	minorThreshold    = decimal.NewFromInt(5)
	moderateThreshold = decimal.NewFromInt(10)
	hundred           = decimal.NewFromInt(100)
)

// Discrepancy hallazgo individual.
type Discrepancy struct {
	Code           string `json:"code"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
	Acceptable     bool   `json:"acceptable"` // no impide continuar
}

// Verdict resultado de la validación.
type Verdict struct {
	IsValid              bool          `json:"is_valid"`
	ShouldProceed        bool          `json:"should_proceed"`
	Confidence           float64       `json:"confidence"`
	RequiresManualReview bool          `json:"requires_manual_review"`
	Discrepancies        []Discrepancy `json:"discrepancies"`
	Recommendations      []string      `json:"recommendations"`
}

// Input datos a comparar.
type Input struct {
	ExpectedAmount decimal.Decimal // total del pedido; cero acepta cualquier monto
	ProviderTaxID  string
	Extracted      entity.ExtractedInvoiceData
}

// Engine motor de validación. Sin estado mutable.
type Engine struct {
	defaultCurrency  string
	ocrMinConfidence float64
}

// NewEngine construye el motor con la moneda del tenant y el umbral de confianza OCR.
func NewEngine(defaultCurrency string, ocrMinConfidence float64) *Engine {
	return &Engine{defaultCurrency: strings.ToUpper(defaultCurrency), ocrMinConfidence: ocrMinConfidence}
}

// Validate aplica todas las reglas de forma independiente y acumulativa.
func (e *Engine) Validate(in Input) Verdict {
	v := Verdict{Confidence: in.Extracted.OCRConfidence, Discrepancies: []Discrepancy{}, Recommendations: []string{}}
	add := func(d Discrepancy, penalty float64, manual bool) {
		v.Discrepancies = append(v.Discrepancies, d)
		v.Recommendations = append(v.Recommendations, d.Recommendation)
		v.Confidence -= penalty
		if manual {
			v.RequiresManualReview = true
		}
	}

	e.checkAmount(in, add)

	if in.ProviderTaxID != "" && in.Extracted.TaxID != nil {
		want, got := taxid.Normalize(in.ProviderTaxID), taxid.Normalize(*in.Extracted.TaxID)
		if want != "" && got != "" && want != got {
			add(Discrepancy{
				Code:           CodeTaxIDMismatch,
				Severity:       SeverityCritical,
				Message:        fmt.Sprintf("El CUIT de la factura (%s) no coincide con el del proveedor (%s)", got, want),
				Recommendation: "Verificar que la factura corresponda al proveedor del pedido",
			}, penaltyTaxID, true)
		}
	}

	if in.Extracted.OCRConfidence < e.ocrMinConfidence {
		add(Discrepancy{
			Code:           CodeLowOCRConfidence,
			Severity:       SeverityWarning,
			Message:        fmt.Sprintf("Confianza del OCR baja (%.0f%%)", in.Extracted.OCRConfidence*100),
			Recommendation: "Revisar manualmente los datos leídos de la imagen",
		}, penaltyLowOCR, true)
	}

	if in.Extracted.InvoiceNumber == nil || strings.TrimSpace(*in.Extracted.InvoiceNumber) == "" {
		add(Discrepancy{
			Code:           CodeMissingInvoiceNumber,
			Severity:       SeverityWarning,
			Message:        "No se encontró el número de factura",
			Recommendation: "Cargar el número de factura manualmente",
		}, penaltyMissingNumber, false)
	}

	if cur := strings.ToUpper(in.Extracted.Currency); cur != "" && e.defaultCurrency != "" && cur != e.defaultCurrency {
		add(Discrepancy{
			Code:           CodeCurrencyMismatch,
			Severity:       SeverityWarning,
			Message:        fmt.Sprintf("La factura está en %s y la moneda habitual es %s", cur, e.defaultCurrency),
			Recommendation: "Confirmar la moneda y el tipo de cambio antes de pagar",
		}, penaltyCurrency, false)
	}

	v.Confidence = roundConfidence(v.Confidence)
	v.IsValid = allAcceptable(v.Discrepancies)
	v.ShouldProceed = v.IsValid
	return v
}

func (e *Engine) checkAmount(in Input, add func(Discrepancy, float64, bool)) {
	expected := in.ExpectedAmount
	if expected.IsZero() {
		return // pedido sin precio cargado: cualquier monto es aceptable
	}
	if in.Extracted.TotalAmount == nil {
		add(Discrepancy{
			Code:           CodeAmountMissing,
			Severity:       SeverityModerate,
			Message:        "No se pudo leer el total de la factura",
			Recommendation: "Cargar el total manualmente y compararlo con el pedido",
		}, penaltyMissingAmount, true)
		return
	}

	got := *in.Extracted.TotalAmount
	pct := expected.Sub(got).Abs().Div(expected.Abs()).Mul(hundred)
	if pct.IsZero() {
		return
	}
	pctLabel := pct.StringFixed(1)

	switch {
	case pct.GreaterThan(moderateThreshold):
		add(Discrepancy{
			Code:           CodeAmountMismatch,
			Severity:       SeveritySevere,
			Message:        fmt.Sprintf("El total de la factura (%s) difiere %s%% del pedido (%s)", got.StringFixed(2), pctLabel, expected.StringFixed(2)),
			Recommendation: "Revisión manual: contactar al proveedor antes de pagar",
		}, penaltySevereAmount, true)
	case pct.GreaterThan(minorThreshold):
		add(Discrepancy{
			Code:           CodeAmountMismatch,
			Severity:       SeverityModerate,
			Message:        fmt.Sprintf("El total de la factura (%s) difiere %s%% del pedido (%s)", got.StringFixed(2), pctLabel, expected.StringFixed(2)),
			Recommendation: "Verificar ítems agregados o faltantes; se puede continuar",
			Acceptable:     true,
		}, penaltyModerateAmount, false)
	default:
		add(Discrepancy{
			Code:           CodeAmountMismatch,
			Severity:       SeverityMinor,
			Message:        fmt.Sprintf("Diferencia menor de %s%% entre factura y pedido", pctLabel),
			Recommendation: "Diferencia aceptable (redondeos o recargos); se puede continuar",
			Acceptable:     true,
		}, 0, false)
	}
}

func allAcceptable(ds []Discrepancy) bool {
	for _, d := range ds {
		if !d.Acceptable {
			return false
		}
	}
	return true
}

func roundConfidence(c float64) float64 {
	c = math.Round(c*1e4) / 1e4
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
