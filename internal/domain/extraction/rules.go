package extraction

import "regexp"

// currencyPrefix símbolos o códigos que pueden preceder a un monto.
const currencyPrefix = `(?:ARS|USD|EUR|U\$S|US\$|\$|€)?`

// amountCapture monto con separadores de miles/decimales en cualquier convención. No puede
// seguirlo "/" ni "-": "Total: 31/02/2024" no es un monto.
const amountCapture = `([0-9][0-9.,]*)(?:[^0-9.,/-]|$)`

// SkipGroup nombre del grupo que, si captura algo, descarta la coincidencia.
const SkipGroup = "skip"

// numberLabel rótulos de número de comprobante; los más largos primero.
const numberLabel = `(?:n[uú]mero|nro\.?|number|no\.?|n[°º]|#)`

// bareDateRe fecha sin rótulo: DD/MM/YYYY, DD-MM-YYYY, DD/MM/YY, DD-MM-YY.
var bareDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)

// FieldRules patrones por campo, del más específico al más permisivo.
// Para soportar un formato nuevo basta con agregar un patrón a la lista del campo:
// el primer grupo de captura es el valor candidato. Un grupo (?P<skip>...) que captura
// descarta la coincidencia. Los montos se toman de la última coincidencia de cada patrón
// (el total va después de subtotales e impuestos).
type FieldRules struct {
	InvoiceNumber []*regexp.Regexp
	TotalAmount   []*regexp.Regexp
	IssueDate     []*regexp.Regexp // grupos: día, mes, año
	TaxID         []*regexp.Regexp
}

// DefaultRules patrones para facturas argentinas (y formatos latinoamericanos frecuentes).
func DefaultRules() FieldRules {
	return FieldRules{
		InvoiceNumber: []*regexp.Regexp{
			// "Factura A N° 0001-00001234", "Comprobante Nro: 00003-00000123"
			regexp.MustCompile(`(?i)(?:factura|comprobante)\s*(?:[ABCEM]\s+)?` + numberLabel + `\s*[:.]?\s*(\d{4,5}\s*-\s*\d{6,8})`),
			regexp.MustCompile(`(?i)(?:factura|comprobante|invoice)\s*(?:[ABCEM]\s+)?` + numberLabel + `\s*[:.]?\s*([A-Z0-9][A-Z0-9/-]{2,})`),
			regexp.MustCompile(`(?i)(?:^|\s)(?:n[°º]|nro\.?)\s*[:.]?\s*([A-Z0-9][A-Z0-9/-]{2,})`),
		},
		TotalAmount: []*regexp.Regexp{
			regexp.MustCompile(`(?i)total\s+a\s+pagar\s*[:.]?\s*` + currencyPrefix + `\s*` + amountCapture),
			regexp.MustCompile(`(?i)importe\s+total\s*[:.]?\s*` + currencyPrefix + `\s*` + amountCapture),
			// \b evita "Subtotal"; skip descarta "Sub Total" y "Sub-total"
			regexp.MustCompile(`(?i)(?P<skip>\bsub[\s-]*)?\btotal\s*[:.]?\s*` + currencyPrefix + `\s*` + amountCapture),
			regexp.MustCompile(`(?i)\b(?:monto|importe)\s*[:.]?\s*` + currencyPrefix + `\s*` + amountCapture),
		},
		IssueDate: []*regexp.Regexp{
			regexp.MustCompile(`(?i)fecha(?:\s+de)?(?:\s+emisi[oó]n)?\s*[:.]?\s*(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`),
			bareDateRe,
		},
		TaxID: []*regexp.Regexp{
			regexp.MustCompile(`(?i)c\.?\s?u\.?\s?i\.?\s?[tl]\.?\s*(?:n[°ºo.]*)?\s*[:.]?\s*(\d{2}[ .-]?\d{8}[ .-]?\d)`),
			regexp.MustCompile(`(?i)\b(?:nit|rut|ruc|tax\s*id)\s*[:.]?\s*([0-9][0-9. -]{5,14}[0-9])`),
			regexp.MustCompile(`\b(\d{2}-\d{8}-\d)\b`),
		},
	}
}

// currencyRules detección de moneda en orden de prioridad ("U$S" contiene "$").
var currencyRules = []struct {
	code string
	re   *regexp.Regexp
}{
	{"USD", regexp.MustCompile(`(?i)\bUSD\b|\bU\$S|\bUS\$|\bd[oó]lares\b`)},
	{"EUR", regexp.MustCompile(`(?i)\bEUR\b|€|\beuros?\b`)},
	{"ARS", regexp.MustCompile(`(?i)\bARS\b|\$|\bpesos\b`)},
}
