// Package sync implementa el endpoint de sincronización del backend
// compartido y su guard anti-overbooking. Este guard es el único punto de
// verdad: los chequeos del lado cliente son solo UX, acá es el único
// lugar con una vista consistente de todas las reservas concurrentes.
package sync

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lelo88/rental-sync-golang/internal/lifecycle"
	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// Razones propias del guard, además de las compartidas con lifecycle.
const (
	ReasonItemsFetchFailed        = "items_fetch_failed"
	ReasonOverlapFetchFailed      = "overlap_fetch_failed"
	ReasonItemsOverlapFetchFailed = "items_overlap_fetch_failed"
)

// ErrorInvalidPush marca un push con entidades malformadas.
var ErrorInvalidPush = errors.New("invalid push payload")

// Store es lo que el guard necesita del storage autoritativo.
type Store interface {
	UpsertArticle(ctx context.Context, article rental.Article) error
	UpsertReservation(ctx context.Context, reservation rental.Reservation) error
	UpsertReservationItem(ctx context.Context, item rental.ReservationItem) error
	GetArticle(ctx context.Context, id string) (rental.Article, error)
	ListItemsByReservation(ctx context.Context, reservationID string) ([]rental.ReservationItem, error)
	// OverlappingInProgressIDs devuelve los ids de reservas almacenadas en
	// in_progress cuyo intervalo se solapa con [from, to].
	OverlappingInProgressIDs(ctx context.Context, from, to rental.Day) ([]string, error)
	// SumItemQuantity suma las cantidades del artículo entre los renglones
	// de las reservas dadas.
	SumItemQuantity(ctx context.Context, reservationIDs []string, articleID string) (int, error)
	ListArticles(ctx context.Context) ([]rental.Article, error)
	ListReservations(ctx context.Context) ([]rental.Reservation, error)
	ListReservationItems(ctx context.Context) ([]rental.ReservationItem, error)
}

// Service orquesta una pasada de sync: upsert de artículos, guard por
// reserva, upsert filtrado y pull del dataset completo.
type Service struct {
	store Store
}

// NewService crea el service de sync.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Sync procesa un push completo. Orden de upsert: artículos → reservas
// (con guard anti-overbooking) → renglones. Degrada por reserva: una
// reserva rechazada no frena el resto del batch, pero encabezado y
// renglones de esa reserva quedan fuera juntos.
func (service *Service) Sync(ctx context.Context, push Push) (Response, error) {
	// Errors siempre presente en la respuesta, aunque vacío.
	violations := make([]lifecycle.Violation, 0)

	for _, article := range push.Articles {
		if err := article.Validate(); err != nil {
			return Response{}, ErrorInvalidPush
		}
		if err := service.store.UpsertArticle(ctx, article); err != nil {
			return Response{}, err
		}
	}

	itemsByReservation := make(map[string][]rental.ReservationItem, len(push.Reservations))
	for _, item := range push.ReservationItems {
		if err := item.Validate(); err != nil {
			return Response{}, ErrorInvalidPush
		}
		itemsByReservation[item.ReservationID] = append(itemsByReservation[item.ReservationID], item)
	}

	// Orden de llegada: ante dos reservas del mismo push peleando por la
	// última unidad, gana la primera procesada. Encabezado y renglones se
	// escriben juntos dentro del loop para que la siguiente reserva del
	// batch ya vea el stock retenido por las anteriores.
	for _, reservation := range push.Reservations {
		if err := reservation.Validate(); err != nil {
			return Response{}, ErrorInvalidPush
		}
		if reservation.Status == rental.StatusInProgress {
			if violation := service.validate(ctx, reservation, itemsByReservation[reservation.ID]); violation != nil {
				violations = append(violations, *violation)
				continue
			}
		}
		if err := service.store.UpsertReservation(ctx, reservation); err != nil {
			return Response{}, err
		}
		// Una reserva rechazada nunca escribe sus renglones: encabezado y
		// renglones quedan consistentes.
		for _, item := range itemsByReservation[reservation.ID] {
			if err := service.store.UpsertReservationItem(ctx, item); err != nil {
				return Response{}, err
			}
		}
	}

	response, err := service.pull(ctx)
	if err != nil {
		return Response{}, err
	}
	response.ServerTime = time.Now().UTC().Format(time.RFC3339)
	response.Errors = violations
	return response, nil
}

// validate aplica el guard a una reserva entrante en in_progress.
// Devuelve nil si puede retener stock, o la violación que la rechaza.
// Fallos de lectura se tratan como violación con razón propia:
// conservador, mejor bloquear que arriesgar un overbooking, y el operador
// distingue "realmente sobrevendido" de "no se pudo verificar".
func (service *Service) validate(ctx context.Context, reservation rental.Reservation, candidates []rental.ReservationItem) *lifecycle.Violation {
	// Renglones candidatos: los del push si vinieron; si no, los ya
	// almacenados para ese id (sync parcial de solo-encabezado).
	if len(candidates) == 0 {
		stored, err := service.store.ListItemsByReservation(ctx, reservation.ID)
		if err != nil {
			return &lifecycle.Violation{ReservationID: reservation.ID, Reason: ReasonItemsFetchFailed}
		}
		candidates = stored
	}

	for _, item := range candidates {
		overlapping, err := service.store.OverlappingInProgressIDs(ctx, reservation.DateStart, reservation.DateEnd)
		if err != nil {
			return &lifecycle.Violation{ReservationID: reservation.ID, ArticleID: item.ArticleID, Reason: ReasonOverlapFetchFailed}
		}
		others := overlapping[:0:0]
		for _, id := range overlapping {
			// El estado previo almacenado de la reserva evaluada no compite
			// contra sí misma.
			if id != reservation.ID {
				others = append(others, id)
			}
		}

		reserved := 0
		if len(others) > 0 {
			reserved, err = service.store.SumItemQuantity(ctx, others, item.ArticleID)
			if err != nil {
				return &lifecycle.Violation{ReservationID: reservation.ID, ArticleID: item.ArticleID, Reason: ReasonItemsOverlapFetchFailed}
			}
		}

		// Fila autoritativa del artículo, no la copia empujada: evita la
		// carrera del cliente desactualizado.
		article, err := service.store.GetArticle(ctx, item.ArticleID)
		if err != nil {
			return &lifecycle.Violation{ReservationID: reservation.ID, ArticleID: item.ArticleID, Reason: lifecycle.ReasonArticleMissing}
		}

		available := article.TotalUnits - article.BrokenUnits - reserved
		if available < 0 {
			available = 0
		}
		if item.Quantity > available {
			return &lifecycle.Violation{
				ReservationID: reservation.ID,
				ArticleID:     item.ArticleID,
				Requested:     item.Quantity,
				Available:     available,
				Reason:        lifecycle.ReasonOverbook,
			}
		}
	}
	return nil
}

// pull lee el dataset completo en paralelo (tres selects independientes).
func (service *Service) pull(ctx context.Context) (Response, error) {
	var response Response
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		articles, err := service.store.ListArticles(groupCtx)
		response.Articles = articles
		return err
	})
	group.Go(func() error {
		reservations, err := service.store.ListReservations(groupCtx)
		response.Reservations = reservations
		return err
	})
	group.Go(func() error {
		items, err := service.store.ListReservationItems(groupCtx)
		response.ReservationItems = items
		return err
	})

	if err := group.Wait(); err != nil {
		return Response{}, err
	}
	if response.Articles == nil {
		response.Articles = []rental.Article{}
	}
	if response.Reservations == nil {
		response.Reservations = []rental.Reservation{}
	}
	if response.ReservationItems == nil {
		response.ReservationItems = []rental.ReservationItem{}
	}
	return response, nil
}
