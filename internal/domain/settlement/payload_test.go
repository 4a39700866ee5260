package settlement_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
	"github.com/jhoicas/conciliador-api/internal/domain/settlement"
)

func ptr[T any](v T) *T { return &v }

func provider() *entity.Provider {
	return &entity.Provider{ID: "p-1", Name: "Distribuidora Sur", BankAlias: "sur.pagos.mp", BankAccountNumber: "0000003100012345678901"}
}

func builder() *settlement.Builder { return settlement.NewBuilder("ARS", "transfer", "es-AR") }

func TestBuild_UsaTotalYMonedaDeLaFactura(t *testing.T) {
	o := &entity.Order{
		ID: "o-1", OrderNumber: "PED-0042", Currency: "ARS", TotalAmount: decimal.NewFromInt(1000),
		ExtractedInvoice: &entity.ExtractedInvoiceData{
			InvoiceNumber: ptr("0001-00000077"),
			TotalAmount:   ptr(decimal.RequireFromString("1234.5")),
			Currency:      "usd",
		},
	}

	p := builder().Build(o, provider())

	assert.True(t, decimal.RequireFromString("1234.5").Equal(p.Amount))
	assert.Equal(t, "USD", p.Currency)
	require.NotNil(t, p.InvoiceNumber)
	assert.Contains(t, p.FormattedAmount, ",50")
	assert.Contains(t, p.Message, "Distribuidora Sur")
	assert.Contains(t, p.Message, "Factura: 0001-00000077")
	assert.Contains(t, p.Message, "Alias: sur.pagos.mp")
	assert.Contains(t, p.Message, "Cuenta: 0000003100012345678901")
}

func TestBuild_SinFacturaUsaElPedidoYDefaults(t *testing.T) {
	o := &entity.Order{ID: "o-1", TotalAmount: decimal.NewFromInt(500)}
	prov := provider()

	p := builder().Build(o, prov)

	assert.True(t, decimal.NewFromInt(500).Equal(p.Amount))
	assert.Equal(t, "ARS", p.Currency)
	assert.Equal(t, settlement.MethodTransfer, p.Method)
	assert.Nil(t, p.InvoiceNumber)
	assert.NotContains(t, p.Message, "Factura:")
}

func TestBuild_PrioridadDelMetodo(t *testing.T) {
	prov := provider()
	prov.DefaultPaymentMethod = settlement.MethodCash

	p := builder().Build(&entity.Order{Currency: "ARS"}, prov)
	assert.Equal(t, settlement.MethodCash, p.Method)
	assert.NotContains(t, p.Message, "Alias:", "efectivo no lleva datos bancarios")

	p = builder().Build(&entity.Order{Currency: "ARS", PaymentMethod: ptr(settlement.MethodMercadoPago)}, prov)
	assert.Equal(t, settlement.MethodMercadoPago, p.Method)
	assert.Equal(t, "Mercado Pago", p.MethodLabel)
	assert.Contains(t, p.Message, "Alias:")
}

func TestMethodLabel_Desconocido(t *testing.T) {
	assert.Equal(t, "crypto", settlement.MethodLabel("crypto"))
	assert.False(t, settlement.IsTransferLike("crypto"))
}

func TestFormatAmount_SeparadoresDelLocale(t *testing.T) {
	b := builder()
	assert.Equal(t, "1.234,50", b.FormatAmount(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0,05", b.FormatAmount(decimal.RequireFromString("0.049")))
	assert.Equal(t, "999,00", b.FormatAmount(decimal.NewFromInt(999)))
	assert.Equal(t, "-12.000,00", b.FormatAmount(decimal.NewFromInt(-12000)))

	en := settlement.NewBuilder("USD", "", "en-US")
	assert.Equal(t, "1,234,567.89", en.FormatAmount(decimal.RequireFromString("1234567.89")))
}

func TestFormatAmount_MontosGrandesSinPerderPrecision(t *testing.T) {
	got := builder().FormatAmount(decimal.RequireFromString("123456789012345678.91"))
	assert.Equal(t, "123.456.789.012.345.678,91", got)
}
