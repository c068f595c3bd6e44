package rental

import (
	"errors"
	"time"
)

// Errores de dominio compartidos por validaciones de modelo.
var (
	ErrorInvalidArticle     = errors.New("invalid article")
	ErrorInvalidReservation = errors.New("invalid reservation")
	ErrorInvalidItem        = errors.New("invalid reservation item")
)

// Article representa un tipo de equipo alquilable con stock finito.
// PricePerDay se modela como string para evitar errores de precisión con
// float (DB: numeric(10,2)).
type Article struct {
	ID            string    `json:"id" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	Category      *string   `json:"category,omitempty"`
	Description   *string   `json:"description,omitempty"`
	PricePerDay   string    `json:"pricePerDay" validate:"required"`
	TotalUnits    int       `json:"totalUnits" validate:"gte=0"`
	BrokenUnits   int       `json:"brokenUnits" validate:"gte=0"`
	LowStockAlert *int      `json:"lowStockAlert,omitempty"`
	DepositUnit   *string   `json:"depositUnit,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// RentableUnits son las unidades físicamente alquilables (sin contar
// reservas): total menos roturas. Nunca negativo.
func (article Article) RentableUnits() int {
	units := article.TotalUnits - article.BrokenUnits
	if units < 0 {
		return 0
	}
	return units
}

// Validate refuerza las invariantes del artículo.
func (article Article) Validate() error {
	if article.ID == "" || article.Name == "" {
		return ErrorInvalidArticle
	}
	if article.TotalUnits < 0 || article.BrokenUnits < 0 {
		return ErrorInvalidArticle
	}
	if article.BrokenUnits > article.TotalUnits {
		return ErrorInvalidArticle
	}
	return nil
}

// Reservation es un intervalo de días calendario inclusivo con sus datos
// de cliente. Los renglones viven aparte (ReservationItem).
type Reservation struct {
	ID          string    `json:"id" validate:"required"`
	DateStart   Day       `json:"dateStart" validate:"required,datetime=2006-01-02"`
	DateEnd     Day       `json:"dateEnd" validate:"required,datetime=2006-01-02"`
	ClientName  *string   `json:"clientName,omitempty"`
	ClientPhone *string   `json:"clientPhone,omitempty"`
	Note        *string   `json:"note,omitempty"`
	Status      Status    `json:"status" validate:"required,oneof=draft confirmed in_progress closed cancelled"`
	Deposit     *string   `json:"deposit,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate refuerza las invariantes de la reserva.
func (reservation Reservation) Validate() error {
	if reservation.ID == "" {
		return ErrorInvalidReservation
	}
	if !reservation.DateStart.Valid() || !reservation.DateEnd.Valid() {
		return ErrorInvalidReservation
	}
	if reservation.DateStart.After(reservation.DateEnd) {
		return ErrorInvalidReservation
	}
	if !reservation.Status.Valid() {
		return ErrorInvalidReservation
	}
	return nil
}

// ReservationItem es un renglón: cantidad pedida de un artículo.
// PriceSnapshot congela el precio por día vigente al crear el renglón;
// cambios posteriores del precio del artículo no alteran reservas ni
// facturas históricas.
type ReservationItem struct {
	ID            string `json:"id" validate:"required"`
	ReservationID string `json:"reservationId" validate:"required"`
	ArticleID     string `json:"articleId" validate:"required"`
	Quantity      int    `json:"quantity" validate:"gt=0"`
	PriceSnapshot string `json:"priceSnapshot"`
}

// Validate refuerza las invariantes del renglón.
func (item ReservationItem) Validate() error {
	if item.ID == "" || item.ReservationID == "" || item.ArticleID == "" {
		return ErrorInvalidItem
	}
	if item.Quantity <= 0 {
		return ErrorInvalidItem
	}
	return nil
}
