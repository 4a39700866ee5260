package ai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/conciliador-api/internal/infrastructure/ai"
)

func claudeServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"type":"overloaded_error","message":"sobrecargado"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newService(t *testing.T, baseURL string) *ai.AnthropicService {
	t.Helper()
	svc, err := ai.NewAnthropicService("test-key", "claude-test", baseURL, 5*time.Second)
	require.NoError(t, err)
	return svc
}

// ── Respuestas válidas ────────────────────────────────────────────────────────

func TestExtractLineItems_ParseaRespuestaConMarkdown(t *testing.T) {
	text := "```json\n{\"line_items\":[" +
		"{\"product_name\":\"Harina 000\",\"quantity\":10,\"unit\":\"kg\",\"unit_price\":850.5}," +
		"{\"product_name\":\"Aceite girasol\",\"quantity\":\"2\",\"unit\":\"bidón\",\"unit_price\":\"12.300,00\"}" +
		"]}\n```"
	srv := claudeServer(t, http.StatusOK, text)

	items, err := newService(t, srv.URL).ExtractLineItems(context.Background(), "FACTURA A ...")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Harina 000", items[0].ProductName)
	assert.True(t, decimal.NewFromInt(10).Equal(items[0].Quantity))
	assert.True(t, decimal.RequireFromString("850.5").Equal(items[0].UnitPrice))
	assert.Equal(t, "kg", items[0].Unit)

	assert.True(t, decimal.NewFromInt(2).Equal(items[1].Quantity))
	assert.True(t, decimal.RequireFromString("12300").Equal(items[1].UnitPrice))
}

func TestExtractLineItems_OmiteLineasSinNombre(t *testing.T) {
	srv := claudeServer(t, http.StatusOK,
		`Aquí está: {"line_items":[{"product_name":"  ","quantity":1,"unit_price":1},{"product_name":"Sal fina","quantity":1,"unit_price":100}]}`)

	items, err := newService(t, srv.URL).ExtractLineItems(context.Background(), "texto")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Sal fina", items[0].ProductName)
}

// ── Errores ───────────────────────────────────────────────────────────────────

func TestExtractLineItems_RespuestaFueraDelSchema(t *testing.T) {
	srv := claudeServer(t, http.StatusOK, `{"items":[{"name":"x"}]}`)

	_, err := newService(t, srv.URL).ExtractLineItems(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestExtractLineItems_ErrorHTTP(t *testing.T) {
	srv := claudeServer(t, http.StatusServiceUnavailable, "")

	_, err := newService(t, srv.URL).ExtractLineItems(context.Background(), "texto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
}

func TestExtractLineItems_SinAPIKey(t *testing.T) {
	svc, err := ai.NewAnthropicService("", "claude-test", "http://127.0.0.1:0", time.Second)
	require.NoError(t, err)

	_, err = svc.ExtractLineItems(context.Background(), "texto")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestExtractLineItems_TextoVacioNoLlamaAlModelo(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	items, err := newService(t, srv.URL).ExtractLineItems(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.False(t, called)
}

func TestExtractLineItems_ContextoCancelado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect and cancel r.Context().
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newService(t, srv.URL).ExtractLineItems(ctx, "texto")
	assert.ErrorContains(t, err, "timeout")
}
