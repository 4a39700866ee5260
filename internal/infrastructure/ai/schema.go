package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const lineItemSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["line_items"],
  "properties": {
    "line_items": {
      "type": "array",
      "maxItems": 500,
      "items": {
        "type": "object",
        "required": ["product_name", "quantity", "unit_price"],
        "properties": {
          "product_name": {"type": "string"},
          "quantity": {"type": ["number", "string"]},
          "unit": {"type": ["string", "null"]},
          "unit_price": {"type": ["number", "string"]}
        }
      }
    }
  }
}`

// lineItemSchema esquema compilado de la respuesta del modelo.
type lineItemSchema struct {
	schema *jsonschema.Schema
}

func compileLineItemSchema() (*lineItemSchema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("line_items.json", strings.NewReader(lineItemSchemaJSON)); err != nil {
		return nil, fmt.Errorf("AI: agregar schema: %w", err)
	}
	schema, err := compiler.Compile("line_items.json")
	if err != nil {
		return nil, fmt.Errorf("AI: compilar schema: %w", err)
	}
	return &lineItemSchema{schema: schema}, nil
}

func (s *lineItemSchema) validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("JSON inválido: %w", err)
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("la respuesta no cumple el schema de líneas: %w", err)
	}
	return nil
}
