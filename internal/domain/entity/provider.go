package entity

import "time"

// Provider proveedor. Lo administra el módulo de proveedores; aquí es de solo lectura.
type Provider struct {
	ID                   string
	UserID               string
	Name                 string
	TaxID                string // solo dígitos
	BankAlias            string
	BankAccountNumber    string
	DefaultPaymentMethod string
	DeliveryDays         []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
