package rental

import "fmt"

// Status es el estado de una reserva. Variante cerrada: el ciclo de vida
// y el guard hacen dispatch explícito sobre estos valores, nunca sobre
// strings sueltos de los callers.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
	StatusCancelled  Status = "cancelled"
)

// HoldingStatuses es la única definición de qué estados retienen stock.
// La comparten el motor de disponibilidad y el guard de sincronización
// para que la vista previa del cliente y el enforcement del servidor
// no diverjan.
var HoldingStatuses = []Status{StatusConfirmed, StatusInProgress}

// ParseStatus valida un string crudo (JSON, DB) contra la variante cerrada.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusConfirmed, StatusInProgress, StatusClosed, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown reservation status: %q", raw)
}

// Valid indica si el status pertenece a la variante cerrada.
func (status Status) Valid() bool {
	_, err := ParseStatus(string(status))
	return err == nil
}

// Terminal indica si el status no admite más transiciones.
func (status Status) Terminal() bool {
	return status == StatusClosed || status == StatusCancelled
}

// Holds indica si el status retiene stock contra la disponibilidad.
func (status Status) Holds() bool {
	for _, holding := range HoldingStatuses {
		if status == holding {
			return true
		}
	}
	return false
}
