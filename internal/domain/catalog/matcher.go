// Package catalog contiene la política de coincidencia entre líneas de factura y el catálogo
// del usuario, y la resolución de proveedor por CUIT.
package catalog

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/pkg/taxid"
)

// MinFuzzyRunes largo mínimo del nombre más corto para aceptar una coincidencia por contención.
const MinFuzzyRunes = 3

// MatchKind cómo se encontró el ítem.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchFuzzy
	MatchExact
)

// Fold pasa a minúsculas, quita acentos y colapsa espacios: "  Azúcar  Común " → "azucar comun".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Match busca el ítem para name en dos niveles:
//  1. nombre idéntico (sin espacios en los extremos);
//  2. contención sin distinguir mayúsculas ni acentos, en cualquier dirección, respetando
//     límites de palabra. Entre varios candidatos gana el de largo más parecido y luego el
//     actualizado más recientemente.
func Match(name string, entries []entity.CatalogEntry) (*entity.CatalogEntry, MatchKind) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, MatchNone
	}
	for i := range entries {
		if strings.TrimSpace(entries[i].ProductName) == name {
			return &entries[i], MatchExact
		}
	}

	want := Fold(name)
	type candidate struct {
		idx  int
		diff int
	}
	var found []candidate
	for i := range entries {
		have := Fold(entries[i].ProductName)
		if !containsWords(want, have) {
			continue
		}
		found = append(found, candidate{idx: i, diff: abs(utf8.RuneCountInString(want) - utf8.RuneCountInString(have))})
	}
	if len(found) == 0 {
		return nil, MatchNone
	}
	sort.SliceStable(found, func(a, b int) bool {
		if found[a].diff != found[b].diff {
			return found[a].diff < found[b].diff
		}
		return entries[found[a].idx].UpdatedAt.After(entries[found[b].idx].UpdatedAt)
	})
	return &entries[found[0].idx], MatchFuzzy
}

// containsWords indica si el más corto de a y b aparece dentro del otro como secuencia de
// palabras completas.
func containsWords(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	short, long := a, b
	if utf8.RuneCountInString(short) > utf8.RuneCountInString(long) {
		short, long = long, short
	}
	if utf8.RuneCountInString(short) < MinFuzzyRunes {
		return false
	}
	return strings.Contains(" "+long+" ", " "+short+" ")
}

// ResolveProvider elige el proveedor cuyo CUIT coincide con id: primero coincidencias exactas,
// luego por contención; dentro de cada grupo gana el creado más recientemente.
func ResolveProvider(id string, providers []entity.Provider) *entity.Provider {
	var best *entity.Provider
	bestKind := taxid.NoMatch
	for i := range providers {
		kind := taxid.Compare(id, providers[i].TaxID)
		if kind == taxid.NoMatch {
			continue
		}
		switch {
		case best == nil, kind > bestKind:
			best, bestKind = &providers[i], kind
		case kind == bestKind && providers[i].CreatedAt.After(best.CreatedAt):
			best = &providers[i]
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
