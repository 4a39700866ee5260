// Package extraction convierte el texto crudo del OCR en campos candidatos de factura.
// Cada campo se busca con una cascada ordenada de patrones; gana el primer patrón que
// produce un valor utilizable. Un campo ausente nunca es un error.
package extraction

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/pkg/taxid"
)

// Hint contexto opcional del proveedor/pedido esperado.
type Hint struct {
	ProviderTaxID string // si aparece entre los ids del texto, se prefiere
	Currency      string // moneda del pedido, usada si el texto no indica ninguna
}

// Extractor aplica las reglas de extracción. Es inmutable y seguro para uso concurrente.
type Extractor struct {
	rules           FieldRules
	defaultCurrency string
}

// NewExtractor construye el extractor con las reglas por defecto.
func NewExtractor(defaultCurrency string) *Extractor {
	return NewExtractorWithRules(DefaultRules(), defaultCurrency)
}

// NewExtractorWithRules permite inyectar otras reglas (formatos de otro país, tests).
func NewExtractorWithRules(rules FieldRules, defaultCurrency string) *Extractor {
	return &Extractor{rules: rules, defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// Extract devuelve los campos encontrados en text. ocrConfidence se acota a [0,1].
func (e *Extractor) Extract(text string, ocrConfidence float64, hint Hint) entity.ExtractedInvoiceData {
	text = NormalizeText(text)

	out := entity.ExtractedInvoiceData{
		Currency:      e.detectCurrency(text, hint),
		OCRConfidence: clamp01(ocrConfidence),
		Source:        entity.ExtractionSourceOCR,
	}
	if v, ok := firstMatch(e.rules.InvoiceNumber, text, parseInvoiceNumber); ok {
		out.InvoiceNumber = &v
	}
	if v, ok := lastMatch(e.rules.TotalAmount, text, parseAmountGroups); ok {
		out.TotalAmount = &v
	}
	if v, ok := firstMatch(e.rules.IssueDate, text, parseDateGroups); ok {
		out.IssueDate = &v
	}
	if v, ok := e.extractTaxID(text, hint); ok {
		out.TaxID = &v
	}
	return out
}

// firstMatch recorre los patrones en orden y, dentro de cada uno, las coincidencias en orden
// de aparición. Devuelve el primer valor que parse acepta.
func firstMatch[T any](patterns []*regexp.Regexp, text string, parse func(groups []string) (T, bool)) (T, bool) {
	return scan(patterns, text, false, parse)
}

// lastMatch igual que firstMatch pero recorre las coincidencias de cada patrón desde el final.
func lastMatch[T any](patterns []*regexp.Regexp, text string, parse func(groups []string) (T, bool)) (T, bool) {
	return scan(patterns, text, true, parse)
}

func scan[T any](patterns []*regexp.Regexp, text string, fromEnd bool, parse func(groups []string) (T, bool)) (T, bool) {
	for _, re := range patterns {
		matches := re.FindAllStringSubmatch(text, -1)
		if fromEnd {
			slices.Reverse(matches)
		}
		skip := re.SubexpIndex(SkipGroup)
		for _, m := range matches {
			if skip > 0 && m[skip] != "" {
				continue
			}
			if v, ok := parse(valueGroups(m, skip)); ok {
				return v, true
			}
		}
	}
	var zero T
	return zero, false
}

// valueGroups grupos de captura sin el grupo skip.
func valueGroups(m []string, skip int) []string {
	if skip <= 0 {
		return m[1:]
	}
	out := make([]string, 0, len(m)-2)
	for i := 1; i < len(m); i++ {
		if i != skip {
			out = append(out, m[i])
		}
	}
	return out
}

func parseInvoiceNumber(groups []string) (string, bool) {
	if len(groups) == 0 {
		return "", false
	}
	v := strings.Join(strings.Fields(groups[0]), "")
	v = strings.Trim(v, "-/")
	if !strings.ContainsAny(v, "0123456789") {
		return "", false
	}
	return strings.ToUpper(v), true
}

// ParseAmount interpreta un monto con separadores en cualquier convención:
// "1.234,56", "1,234.56", "1234,5" y "1.500" (miles) devuelven 1234.56, 1234.56, 1234.5 y 1500.
// Con ambos separadores el último es el decimal. Con uno solo, es de miles si se repite o si
// lo siguen exactamente tres dígitos. Montos no positivos se descartan.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimRight(strings.TrimSpace(raw), ".,")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec, thousands := ".", ","
		if lastComma > lastDot {
			dec, thousands = ",", "."
		}
		s = strings.ReplaceAll(s, thousands, "")
		if strings.Count(s, dec) > 1 {
			return decimal.Zero, false
		}
		s = strings.Replace(s, dec, ".", 1)
	case lastDot >= 0 || lastComma >= 0:
		sep, idx := ".", lastDot
		if lastComma >= 0 {
			sep, idx = ",", lastComma
		}
		if strings.Count(s, sep) > 1 || len(s)-idx-1 == 3 {
			s = strings.ReplaceAll(s, sep, "")
		} else {
			s = strings.Replace(s, sep, ".", 1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func parseAmountGroups(groups []string) (decimal.Decimal, bool) {
	if len(groups) == 0 {
		return decimal.Zero, false
	}
	return ParseAmount(groups[0])
}

// parseDateGroups valida día/mes/año y devuelve la fecha ISO. Años de dos dígitos suman 2000.
// Se rechaza la fecha si el calendario la normaliza a otro día (ej. 31/02).
func parseDateGroups(groups []string) (string, bool) {
	if len(groups) < 3 {
		return "", false
	}
	day, err1 := strconv.Atoi(groups[0])
	month, err2 := strconv.Atoi(groups[1])
	year, err3 := strconv.Atoi(groups[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if len(groups[2]) == 2 {
		year += 2000
	}
	if year < 1900 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// ParseDate interpreta una fecha suelta en formato DD/MM/YYYY, DD-MM-YYYY o con año de dos dígitos.
func ParseDate(s string) (string, bool) {
	return firstMatch([]*regexp.Regexp{bareDateRe}, s, parseDateGroups)
}

func parseTaxIDGroups(groups []string) (string, bool) {
	if len(groups) == 0 {
		return "", false
	}
	v := taxid.Normalize(groups[0])
	if len(v) < 7 || len(v) > 13 {
		return "", false
	}
	return v, true
}

// extractTaxID las facturas traen el id del emisor y del comprador: si alguno coincide con el
// del proveedor esperado se devuelve ese; si no, el primero de la cascada.
func (e *Extractor) extractTaxID(text string, hint Hint) (string, bool) {
	want := taxid.Normalize(hint.ProviderTaxID)
	if want != "" {
		for _, re := range e.rules.TaxID {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				if v, ok := parseTaxIDGroups(m[1:]); ok && v == want {
					return v, true
				}
			}
		}
	}
	return firstMatch(e.rules.TaxID, text, parseTaxIDGroups)
}

func (e *Extractor) detectCurrency(text string, hint Hint) string {
	for _, r := range currencyRules {
		if r.re.MatchString(text) {
			return r.code
		}
	}
	if hint.Currency != "" {
		return strings.ToUpper(hint.Currency)
	}
	return e.defaultCurrency
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
