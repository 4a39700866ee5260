// Package taxid canoniza y compara identificadores fiscales (CUIT/CUIL/NIT/RUT).
// La forma canónica es solo dígitos: "30-71234567-1" y "30712345671" son el mismo id.
package taxid

import (
	"fmt"
	"strings"
)

// MinSubstringDigits longitud mínima del id más corto para aceptar coincidencia por contención.
const MinSubstringDigits = 6

// pesos del dígito verificador de CUIT/CUIL (módulo 11), aplicados a los 10 primeros dígitos.
var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// Normalize devuelve solo los dígitos ASCII de s.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Kind tipo de coincidencia entre dos ids.
type Kind int

const (
	NoMatch Kind = iota
	SubstringMatch
	ExactMatch
)

// Compare compara dos ids ya canonizados o no.
// Exacta si los dígitos son iguales; por contención si uno contiene al otro y el más corto
// tiene al menos MinSubstringDigits dígitos.
func Compare(a, b string) Kind {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return NoMatch
	}
	if a == b {
		return ExactMatch
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) >= MinSubstringDigits && strings.Contains(long, short) {
		return SubstringMatch
	}
	return NoMatch
}

// Matches indica si dos ids coinciden de forma exacta o por contención.
func Matches(a, b string) bool {
	return Compare(a, b) != NoMatch
}

// CUITCheckDigit calcula el dígito verificador para los 10 primeros dígitos de un CUIT.
// Devuelve error si el CUIT no admite dígito (resto 10) o faltan dígitos.
func CUITCheckDigit(cuit string) (byte, error) {
	digits := Normalize(cuit)
	if len(digits) < 10 {
		return 0, fmt.Errorf("taxid: se requieren al menos 10 dígitos, se encontraron %d", len(digits))
	}
	var sum int
	for i := 0; i < 10; i++ {
		sum += int(digits[i]-'0') * cuitWeights[i]
	}
	switch dv := 11 - sum%11; dv {
	case 11:
		return '0', nil
	case 10:
		return 0, fmt.Errorf("taxid: CUIT sin dígito verificador válido")
	default:
		return byte('0' + dv), nil
	}
}

// ValidCUIT valida longitud (11 dígitos) y dígito verificador.
func ValidCUIT(cuit string) error {
	digits := Normalize(cuit)
	if len(digits) != 11 {
		return fmt.Errorf("taxid: CUIT debe tener 11 dígitos, se recibieron %d", len(digits))
	}
	expected, err := CUITCheckDigit(digits)
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("taxid: dígito verificador inválido: esperado %c, recibido %c", expected, digits[10])
	}
	return nil
}
