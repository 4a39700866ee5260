package entity

import "time"

// Acciones del historial de vinculación.
const (
	LinkActionLink   = "link"
	LinkActionUnlink = "unlink"
)

// LinkHistory auditoría de vinculaciones documento ↔ pedido (best-effort).
type LinkHistory struct {
	ID             string
	DocumentID     string
	OrderID        string
	Action         string
	PreviousStatus string
	NewStatus      string
	Source         string
	CreatedAt      time.Time
}
