// Package lifecycle gobierna las transiciones de estado de una reserva y
// las validaciones de disponibilidad que las protegen del overbooking en
// el dispositivo. Estas validaciones son la vista previa del cliente; la
// autoridad final es el guard del servidor al sincronizar.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lelo88/rental-sync-golang/internal/availability"
	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// Errores de dominio (no HTTP ni storage).
var (
	ErrorInvalidTransition = errors.New("invalid status transition")
	ErrorNotFound          = errors.New("reservation not found")
)

// Razones de violación compartidas con el guard del servidor.
const (
	ReasonOverbook       = "overbook"
	ReasonArticleMissing = "article_missing"
)

// Violation describe un renglón que excede la disponibilidad: cantidad
// pedida contra cantidad realmente disponible.
type Violation struct {
	ReservationID string `json:"reservationId"`
	ArticleID     string `json:"articleId,omitempty"`
	Requested     int    `json:"requested"`
	Available     int    `json:"available"`
	Reason        string `json:"reason"`
}

// ViolationError agrupa las violaciones de una validación fallida. El
// caller las reporta renglón por renglón, nunca las descarta en silencio.
type ViolationError struct {
	Violations []Violation
}

func (violationError *ViolationError) Error() string {
	return fmt.Sprintf("availability violations: %d item(s) exceed available stock", len(violationError.Violations))
}

// Store es el contrato mínimo que el ciclo de vida necesita del storage
// local. Permite testear con fakes sin tocar SQLite.
type Store interface {
	GetArticle(ctx context.Context, id string) (rental.Article, error)
	GetReservation(ctx context.Context, id string) (rental.Reservation, error)
	UpdateReservation(ctx context.Context, reservation rental.Reservation) error
	ListReservationsByStatus(ctx context.Context, statuses []rental.Status) ([]rental.Reservation, error)
	ListItemsByReservation(ctx context.Context, reservationID string) ([]rental.ReservationItem, error)
	ReplaceReservationItems(ctx context.Context, reservationID string, items []rental.ReservationItem) error
	HoldingSnapshot(ctx context.Context) (availability.Snapshot, error)
}

// CanTransition codifica la máquina de estados:
// draft → confirmed → in_progress → closed, con cancelled alcanzable
// desde cualquier estado no terminal.
func CanTransition(from, to rental.Status) bool {
	if from.Terminal() {
		return false
	}
	if to == rental.StatusCancelled {
		return true
	}
	switch from {
	case rental.StatusDraft:
		return to == rental.StatusConfirmed
	case rental.StatusConfirmed:
		return to == rental.StatusInProgress
	case rental.StatusInProgress:
		return to == rental.StatusClosed
	}
	return false
}

// NewItem crea un renglón estampando el snapshot de precio vigente del
// artículo. El snapshot queda inmutable aunque el precio cambie después.
func NewItem(reservationID string, article rental.Article, quantity int) rental.ReservationItem {
	return rental.ReservationItem{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		ArticleID:     article.ID,
		Quantity:      quantity,
		PriceSnapshot: article.PricePerDay,
	}
}

// ValidateHold chequea cada renglón contra la disponibilidad en el
// intervalo de la reserva, excluyendo a la reserva misma del conjunto de
// solape. Devuelve todas las violaciones, no corta en la primera.
func ValidateHold(ctx context.Context, store Store, reservation rental.Reservation, items []rental.ReservationItem) ([]Violation, error) {
	snapshot, err := store.HoldingSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, item := range items {
		article, err := store.GetArticle(ctx, item.ArticleID)
		if err != nil {
			// Conservador: si no podemos verificar, bloqueamos.
			violations = append(violations, Violation{
				ReservationID: reservation.ID,
				ArticleID:     item.ArticleID,
				Reason:        ReasonArticleMissing,
			})
			continue
		}
		available := snapshot.AvailableQuantityExcluding(article, reservation.ID, reservation.DateStart, reservation.DateEnd)
		if item.Quantity > available {
			violations = append(violations, Violation{
				ReservationID: reservation.ID,
				ArticleID:     item.ArticleID,
				Requested:     item.Quantity,
				Available:     available,
				Reason:        ReasonOverbook,
			})
		}
	}
	return violations, nil
}

// transition aplica un cambio de estado validado y refresca UpdatedAt.
func transition(ctx context.Context, store Store, reservation rental.Reservation, to rental.Status) error {
	if !CanTransition(reservation.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrorInvalidTransition, reservation.Status, to)
	}
	reservation.Status = to
	reservation.UpdatedAt = time.Now().UTC()
	return store.UpdateReservation(ctx, reservation)
}

// Confirm pasa draft → confirmed si todos los renglones caben en la
// disponibilidad del intervalo de la reserva.
func Confirm(ctx context.Context, store Store, reservationID string) error {
	reservation, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	items, err := store.ListItemsByReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	violations, err := ValidateHold(ctx, store, reservation, items)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &ViolationError{Violations: violations}
	}
	return transition(ctx, store, reservation, rental.StatusConfirmed)
}

// Cancel es siempre válido desde estados no terminales y libera la
// capacidad retenida de inmediato. No requiere chequeo de disponibilidad.
func Cancel(ctx context.Context, store Store, reservationID string) error {
	reservation, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	return transition(ctx, store, reservation, rental.StatusCancelled)
}

// ReplaceItems reemplaza el conjunto de renglones completo (semántica
// borrar-todo-y-recrear, una edición es un reemplazo atómico del set).
// En draft es libre; desde confirmed en adelante re-dispara la misma
// validación que draft → confirmed antes de commitear.
func ReplaceItems(ctx context.Context, store Store, reservationID string, items []rental.ReservationItem) error {
	reservation, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if reservation.Status != rental.StatusDraft {
		violations, err := ValidateHold(ctx, store, reservation, items)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return &ViolationError{Violations: violations}
		}
	}
	if err := store.ReplaceReservationItems(ctx, reservationID, items); err != nil {
		return err
	}
	reservation.UpdatedAt = time.Now().UTC()
	return store.UpdateReservation(ctx, reservation)
}

// Reschedule cambia el intervalo de la reserva. Igual que ReplaceItems:
// libre en draft, validado desde confirmed en adelante.
func Reschedule(ctx context.Context, store Store, reservationID string, dateStart, dateEnd rental.Day) error {
	if !dateStart.Valid() || !dateEnd.Valid() || dateStart.After(dateEnd) {
		return rental.ErrorInvalidReservation
	}
	reservation, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	reservation.DateStart = dateStart
	reservation.DateEnd = dateEnd
	if reservation.Status != rental.StatusDraft {
		items, err := store.ListItemsByReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		violations, err := ValidateHold(ctx, store, reservation, items)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return &ViolationError{Violations: violations}
		}
	}
	reservation.UpdatedAt = time.Now().UTC()
	return store.UpdateReservation(ctx, reservation)
}

// Report resume una pasada de RollForward.
type Report struct {
	Promoted   []string
	Closed     []string
	Violations []Violation
}

// RollForward es la promoción periódica: confirmed cuya fecha de inicio
// es hoy pasa a in_progress (punto de mayor riesgo de overbooking, se
// re-valida acá porque pudieron confirmarse reservas solapadas desde la
// confirmación original); in_progress cuya fecha de fin es hoy se cierra
// (cerrar solo libera capacidad, no necesita chequeo).
func RollForward(ctx context.Context, store Store, today rental.Day) (Report, error) {
	var report Report

	confirmed, err := store.ListReservationsByStatus(ctx, []rental.Status{rental.StatusConfirmed})
	if err != nil {
		return report, err
	}
	for _, reservation := range confirmed {
		if reservation.DateStart != today {
			continue
		}
		items, err := store.ListItemsByReservation(ctx, reservation.ID)
		if err != nil {
			return report, err
		}
		violations, err := ValidateHold(ctx, store, reservation, items)
		if err != nil {
			return report, err
		}
		if len(violations) > 0 {
			report.Violations = append(report.Violations, violations...)
			continue
		}
		if err := transition(ctx, store, reservation, rental.StatusInProgress); err != nil {
			return report, err
		}
		report.Promoted = append(report.Promoted, reservation.ID)
	}

	inProgress, err := store.ListReservationsByStatus(ctx, []rental.Status{rental.StatusInProgress})
	if err != nil {
		return report, err
	}
	for _, reservation := range inProgress {
		if reservation.DateEnd != today {
			continue
		}
		if err := transition(ctx, store, reservation, rental.StatusClosed); err != nil {
			return report, err
		}
		report.Closed = append(report.Closed, reservation.ID)
	}

	return report, nil
}
