// Package settlement arma los datos de pago de un pedido a partir del pedido, la factura
// vinculada y el perfil bancario del proveedor.
package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/conciliador-api/internal/domain/entity"
)

// Métodos de pago conocidos.
const (
	MethodTransfer    = "transfer"
	MethodCash        = "cash"
	MethodCheck       = "check"
	MethodMercadoPago = "mercadopago"
	MethodDeposit     = "deposit"
)

var methodLabels = map[string]string{
	MethodTransfer:    "Transferencia bancaria",
	MethodCash:        "Efectivo",
	MethodCheck:       "Cheque",
	MethodMercadoPago: "Mercado Pago",
	MethodDeposit:     "Depósito bancario",
}

// transferLike métodos que necesitan alias o número de cuenta.
var transferLike = map[string]bool{
	MethodTransfer:    true,
	MethodMercadoPago: true,
	MethodDeposit:     true,
}

// Payload datos de pago.
type Payload struct {
	OrderID           string          `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	ProviderID        string          `json:"provider_id"`
	ProviderName      string          `json:"provider_name"`
	Amount            decimal.Decimal `json:"amount"`
	FormattedAmount   string          `json:"formatted_amount"`
	Currency          string          `json:"currency"`
	Method            string          `json:"method"`
	MethodLabel       string          `json:"method_label"`
	InvoiceNumber     *string         `json:"invoice_number,omitempty"`
	BankAlias         string          `json:"bank_alias,omitempty"`
	BankAccountNumber string          `json:"bank_account_number,omitempty"`
	Message           string          `json:"message"`
}

// Builder construye payloads con los valores por defecto de la configuración.
type Builder struct {
	defaultCurrency string
	defaultMethod   string
	group           string // separador de miles del locale
	decimalSep      string
}

// NewBuilder locale es un tag BCP 47 ("es-AR"); si no se reconoce se usa español.
func NewBuilder(defaultCurrency, defaultMethod, locale string) *Builder {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	if defaultMethod == "" {
		defaultMethod = MethodTransfer
	}
	group, decimalSep := separators(message.NewPrinter(tag))
	return &Builder{
		defaultCurrency: strings.ToUpper(defaultCurrency),
		defaultMethod:   defaultMethod,
		group:           group,
		decimalSep:      decimalSep,
	}
}

// separators toma los separadores de miles y decimal del locale formateando 1234567,5.
func separators(p *message.Printer) (group, decimalSep string) {
	s := p.Sprintf("%v", number.Decimal(1234567.5, number.Scale(1)))
	i, j := strings.Index(s, "234"), strings.Index(s, "567")
	k := strings.LastIndex(s, "5")
	if i < 2 || j < i+4 || k <= j+3 {
		return ".", ","
	}
	return s[1:i], s[j+3 : k]
}

// Build resuelve monto, moneda y método:
//   - monto: total de la factura vinculada si existe, si no el total del pedido;
//   - moneda: la de la factura, si no la del pedido, si no la de configuración;
//   - método: el del pedido, si no el del proveedor, si no el de configuración.
func (b *Builder) Build(o *entity.Order, p *entity.Provider) Payload {
	amount := o.TotalAmount
	var invoiceNumber *string
	currency := ""
	if inv := o.ExtractedInvoice; inv != nil {
		if inv.TotalAmount != nil {
			amount = *inv.TotalAmount
		}
		currency = inv.Currency
		if inv.InvoiceNumber != nil && *inv.InvoiceNumber != "" {
			n := *inv.InvoiceNumber
			invoiceNumber = &n
		}
	}
	if currency == "" {
		currency = o.Currency
	}
	if currency == "" {
		currency = b.defaultCurrency
	}
	currency = strings.ToUpper(currency)

	method := b.defaultMethod
	switch {
	case o.PaymentMethod != nil && *o.PaymentMethod != "":
		method = *o.PaymentMethod
	case p.DefaultPaymentMethod != "":
		method = p.DefaultPaymentMethod
	}

	out := Payload{
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		ProviderID:        p.ID,
		ProviderName:      p.Name,
		Amount:            amount,
		FormattedAmount:   b.FormatAmount(amount),
		Currency:          currency,
		Method:            method,
		MethodLabel:       MethodLabel(method),
		InvoiceNumber:     invoiceNumber,
		BankAlias:         p.BankAlias,
		BankAccountNumber: p.BankAccountNumber,
	}
	out.Message = b.message(out)
	return out
}

// FormatAmount formatea con separadores del locale y dos decimales. Trabaja sobre el texto
// del decimal, sin pasar por float64.
func (b *Builder) FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var sb strings.Builder
	sb.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteString(b.group)
		}
		sb.WriteRune(r)
	}
	sb.WriteString(b.decimalSep)
	sb.WriteString(frac)
	return sb.String()
}

// MethodLabel nombre legible del método; los desconocidos se muestran tal cual.
func MethodLabel(method string) string {
	if l, ok := methodLabels[method]; ok {
		return l
	}
	return method
}

// IsTransferLike indica si el método requiere datos bancarios.
func IsTransferLike(method string) bool {
	return transferLike[method]
}

func (b *Builder) message(p Payload) string {
	var sb strings.Builder
	sb.WriteString("Pago a " + p.ProviderName + "\n")
	sb.WriteString("Monto: " + p.Currency + " " + p.FormattedAmount + "\n")
	if p.InvoiceNumber != nil {
		sb.WriteString("Factura: " + *p.InvoiceNumber + "\n")
	}
	sb.WriteString("Método: " + p.MethodLabel)
	if IsTransferLike(p.Method) {
		if p.BankAlias != "" {
			sb.WriteString("\nAlias: " + p.BankAlias)
		}
		if p.BankAccountNumber != "" {
			sb.WriteString("\nCuenta: " + p.BankAccountNumber)
		}
	}
	return sb.String()
}
