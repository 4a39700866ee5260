package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/conciliador-api/internal/application/ports"
	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/extraction"
)

// Verificar en tiempo de compilación que AnthropicService implementa LineItemExtractor.
var _ ports.LineItemExtractor = (*AnthropicService)(nil)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"

	// maxInputRunes recorte del texto OCR enviado al modelo.
	maxInputRunes = 12000

	anthropicSystemPrompt = `Eres un asistente que lee facturas de proveedores argentinos a partir de texto OCR.
Devuelve ÚNICAMENTE un objeto JSON válido (sin markdown, sin bloques de código` + " ```json" + `) con esta estructura exacta:
{
  "line_items": [
    {
      "product_name": "<nombre del producto tal como figura en la factura>",
      "quantity": <número>,
      "unit": "<unidad: kg, caja, unidad, bidón, etc. o vacío>",
      "unit_price": <número, precio unitario sin símbolo de moneda>
    }
  ]
}

Reglas:
- Incluye solo líneas de productos; omite subtotales, impuestos, percepciones y totales.
- Usa punto como separador decimal y sin separador de miles.
- Si no hay líneas de productos legibles devuelve {"line_items": []}.
- No incluyas texto fuera del JSON.`
)

// AnthropicService adaptador de LineItemExtractor sobre la API REST de Anthropic (Claude).
// Usa net/http; no requiere el SDK oficial.
type AnthropicService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	schema     *lineItemSchema
}

// NewAnthropicService construye el adaptador. baseURL vacío usa la API pública.
// Si apiKey está vacío las llamadas devuelven error descriptivo en lugar de panic.
func NewAnthropicService(apiKey, model, baseURL string, timeout time.Duration) (*AnthropicService, error) {
	schema, err := compileLineItemSchema()
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &AnthropicService{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		// El use case impone además un context.WithTimeout propio.
		httpClient: &http.Client{Timeout: timeout},
		schema:     schema,
	}, nil
}

// ── Estructuras internas del protocolo Anthropic Messages API ─────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type llmLineItems struct {
	LineItems []struct {
		ProductName string `json:"product_name"`
		Quantity    any    `json:"quantity"`
		Unit        string `json:"unit"`
		UnitPrice   any    `json:"unit_price"`
	} `json:"line_items"`
}

// jsonBlockRe extrae el primer objeto JSON del texto aunque Claude lo envuelva en markdown.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ── Implementación del puerto ─────────────────────────────────────────────────

// ExtractLineItems envía el texto OCR a Claude y devuelve las líneas de detalle.
// La respuesta se valida contra un JSON Schema antes de convertirla.
func (s *AnthropicService) ExtractLineItems(ctx context.Context, rawText string) ([]entity.LineItem, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("AI: ANTHROPIC_API_KEY no configurado")
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, nil
	}

	payload := anthropicRequest{
		Model:     s.model,
		MaxTokens: 2048,
		System:    anthropicSystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: "Texto OCR de la factura:\n" + truncateRunes(rawText, maxInputRunes)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("AI: serializar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("AI: crear HTTP request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("AI: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("AI: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return nil, fmt.Errorf("AI: leer respuesta: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return nil, fmt.Errorf("AI: Anthropic error (%s): %s", errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("AI: Anthropic HTTP %d: %s", resp.StatusCode, string(rawBody))
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(rawBody, &anthResp); err != nil {
		return nil, fmt.Errorf("AI: deserializar respuesta Anthropic: %w", err)
	}
	if len(anthResp.Content) == 0 {
		return nil, fmt.Errorf("AI: Claude devolvió respuesta vacía")
	}

	cleanJSON := extractJSON(anthResp.Content[0].Text)
	if cleanJSON == "" {
		return nil, fmt.Errorf("AI: no se encontró JSON en la respuesta del modelo")
	}
	if err := s.schema.validate([]byte(cleanJSON)); err != nil {
		return nil, fmt.Errorf("AI: %w", err)
	}

	var parsed llmLineItems
	if err := json.Unmarshal([]byte(cleanJSON), &parsed); err != nil {
		return nil, fmt.Errorf("AI: parsear líneas: %w", err)
	}
	items := make([]entity.LineItem, 0, len(parsed.LineItems))
	for _, it := range parsed.LineItems {
		name := strings.TrimSpace(it.ProductName)
		if name == "" {
			continue
		}
		items = append(items, entity.LineItem{
			ProductName: name,
			Quantity:    toDecimal(it.Quantity),
			Unit:        strings.TrimSpace(it.Unit),
			UnitPrice:   toDecimal(it.UnitPrice),
		})
	}
	return items, nil
}

// toDecimal acepta número JSON o string con formato local ("1.500,00").
func toDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x)
	case string:
		if d, ok := extraction.ParseAmount(x); ok {
			return d
		}
	}
	return decimal.Zero
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// extractJSON extrae el primer objeto JSON de un texto libre: primero quita los bloques de
// código markdown y si no queda un objeto usa la regex.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		after := text[idx+3:]
		if nl := strings.Index(after, "\n"); nl != -1 {
			after = after[nl+1:]
		}
		if end := strings.LastIndex(after, "```"); end != -1 {
			after = after[:end]
		}
		text = strings.TrimSpace(after)
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	return strings.TrimSpace(jsonBlockRe.FindString(text))
}
