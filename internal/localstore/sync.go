package localstore

import (
	"context"

	syncapi "github.com/Lelo88/rental-sync-golang/internal/sync"
)

// DatasetForPush junta el dataset local completo para una pasada de sync.
func (store *Store) DatasetForPush(ctx context.Context) (syncapi.Push, error) {
	articles, err := store.ListArticles(ctx)
	if err != nil {
		return syncapi.Push{}, err
	}
	reservations, err := store.ListReservations(ctx)
	if err != nil {
		return syncapi.Push{}, err
	}
	items, err := store.ListReservationItems(ctx)
	if err != nil {
		return syncapi.Push{}, err
	}
	return syncapi.Push{Articles: articles, Reservations: reservations, ReservationItems: items}, nil
}

// ApplyPull reemplaza el dataset local con la respuesta autoritativa del
// servidor (replace todo-o-nada, ver ReplaceAll).
func (store *Store) ApplyPull(ctx context.Context, response syncapi.Response) error {
	return store.ReplaceAll(ctx, response.Articles, response.Reservations, response.ReservationItems)
}
