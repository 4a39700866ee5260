// extract corre el extractor de campos sobre un volcado de texto OCR o una factura UBL y
// muestra el resultado como JSON. Sirve para probar patrones nuevos sin levantar la API.
//
// Uso: go run ./cmd/extract [-latin1] [-currency ARS] [-confidence 0.9] [-cuit 30712345671] factura.txt
// Con "-" o sin archivo lee de stdin.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/extraction"
	"github.com/jhoicas/conciliador-api/internal/infrastructure/ubl"
	"github.com/jhoicas/conciliador-api/pkg/taxid"
)

type output struct {
	Extracted  entity.ExtractedInvoiceData `json:"extracted"`
	LineItems  []entity.LineItem           `json:"line_items,omitempty"`
	CUITValido *bool                       `json:"cuit_valido,omitempty"`
}

func main() {
	latin1 := flag.Bool("latin1", false, "el archivo está en ISO-8859-1 (exportaciones de escáneres viejos)")
	currency := flag.String("currency", "ARS", "moneda por defecto")
	confidence := flag.Float64("confidence", 1, "confianza del OCR [0,1]")
	cuit := flag.String("cuit", "", "CUIT esperado del proveedor")
	flag.Parse()

	path := flag.Arg(0)
	var in io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Abrir archivo: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	if *latin1 {
		in = transform.NewReader(in, charmap.ISO8859_1.NewDecoder())
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer texto: %v\n", err)
		os.Exit(1)
	}

	var out output
	reader := ubl.NewInvoiceReader(*currency)
	if reader.CanRead(string(raw)) {
		out.Extracted, out.LineItems, err = reader.Read(string(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Leer factura UBL: %v\n", err)
			os.Exit(1)
		}
	} else {
		hint := extraction.Hint{ProviderTaxID: taxid.Normalize(*cuit), Currency: *currency}
		out.Extracted = extraction.NewExtractor(*currency).Extract(string(raw), *confidence, hint)
	}
	if id := out.Extracted.TaxID; id != nil && len(*id) == 11 {
		ok := taxid.ValidCUIT(*id) == nil
		out.CUITValido = &ok
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir JSON: %v\n", err)
		os.Exit(1)
	}
}
