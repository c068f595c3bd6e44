package sync

import (
	"github.com/Lelo88/rental-sync-golang/internal/lifecycle"
	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// Push es el dataset local que el dispositivo empuja en una pasada de
// sincronización. Los tres slices pueden venir vacíos (sync parcial donde
// solo cambió el encabezado de una reserva, por ejemplo).
type Push struct {
	Articles         []rental.Article         `json:"articles" validate:"omitempty,dive"`
	Reservations     []rental.Reservation     `json:"reservations" validate:"omitempty,dive"`
	ReservationItems []rental.ReservationItem `json:"reservationItems" validate:"omitempty,dive"`
}

// Request es el body de POST /sync.
type Request struct {
	Push Push `json:"push"`
}

// Response es el contrato de respuesta exitosa del endpoint: el dataset
// autoritativo completo más las violaciones de esta pasada. Errors está
// SIEMPRE presente (posiblemente vacío) y no baja el status HTTP: el
// cliente debe inspeccionarlo en lugar de asumir éxito.
type Response struct {
	Articles         []rental.Article         `json:"articles"`
	Reservations     []rental.Reservation     `json:"reservations"`
	ReservationItems []rental.ReservationItem `json:"reservationItems"`
	ServerTime       string                   `json:"serverTime"`
	Errors           []lifecycle.Violation    `json:"errors"`
}
