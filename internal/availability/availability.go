// Package availability calcula cuántas unidades de un artículo quedan
// libres para un intervalo de días. Es computación pura sobre un snapshot
// en memoria: no toca storage ni red, y para entradas bien formadas nunca
// falla. Intervalos invertidos (from > to) son violación de contrato del
// caller y deben rechazarse antes de llamar.
package availability

import "github.com/Lelo88/rental-sync-golang/internal/rental"

// IntervalsOverlap decide si dos intervalos inclusivos de días calendario
// comparten al menos un día. Regla canónica: inclusivo en ambos extremos,
// un intervalo que termina el día que otro empieza SÍ se solapa (ese día
// ambos compiten por la unidad).
func IntervalsOverlap(aStart, aEnd, bStart, bEnd rental.Day) bool {
	return !(aEnd.Before(bStart) || aStart.After(bEnd))
}

// Snapshot es el conjunto de reservas y renglones sobre el que se calcula.
// El caller decide el origen (store local, push entrante, etc.).
type Snapshot struct {
	Reservations []rental.Reservation
	Items        []rental.ReservationItem
}

// ReservedQuantity suma las cantidades pedidas del artículo en reservas
// con status retenedor (confirmed o in_progress) cuyo intervalo se solapa
// con [from, to]. Borradores y canceladas quedan totalmente fuera de la
// suma, nunca ponderadas parcialmente.
func (snapshot Snapshot) ReservedQuantity(articleID string, from, to rental.Day) int {
	return snapshot.ReservedQuantityExcluding(articleID, "", from, to)
}

// ReservedQuantityExcluding es ReservedQuantity excluyendo una reserva por
// id. El ciclo de vida y el guard siempre excluyen la reserva candidata de
// su propio conjunto de solape: su estado previo no compite contra sí
// misma.
func (snapshot Snapshot) ReservedQuantityExcluding(articleID, excludeReservationID string, from, to rental.Day) int {
	holding := make(map[string]bool, len(snapshot.Reservations))
	for _, reservation := range snapshot.Reservations {
		if reservation.ID == excludeReservationID {
			continue
		}
		if !reservation.Status.Holds() {
			continue
		}
		if !IntervalsOverlap(reservation.DateStart, reservation.DateEnd, from, to) {
			continue
		}
		holding[reservation.ID] = true
	}

	reserved := 0
	for _, item := range snapshot.Items {
		if item.ArticleID != articleID {
			continue
		}
		if !holding[item.ReservationID] {
			continue
		}
		reserved += item.Quantity
	}
	return reserved
}

// AvailableQuantity devuelve las unidades libres del artículo para el
// intervalo: total menos roturas menos reservado. Nunca negativo, incluso
// si anomalías de datos hacen que lo reservado supere el stock.
func (snapshot Snapshot) AvailableQuantity(article rental.Article, from, to rental.Day) int {
	available := article.TotalUnits - article.BrokenUnits - snapshot.ReservedQuantity(article.ID, from, to)
	if available < 0 {
		return 0
	}
	return available
}

// AvailableQuantityExcluding es AvailableQuantity excluyendo una reserva
// por id (ver ReservedQuantityExcluding).
func (snapshot Snapshot) AvailableQuantityExcluding(article rental.Article, excludeReservationID string, from, to rental.Day) int {
	available := article.TotalUnits - article.BrokenUnits - snapshot.ReservedQuantityExcluding(article.ID, excludeReservationID, from, to)
	if available < 0 {
		return 0
	}
	return available
}
