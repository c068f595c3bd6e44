package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lelo88/rental-sync-golang/internal/availability"
	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// fakeStore implementa Store en memoria para testing.
type fakeStore struct {
	articles     map[string]rental.Article
	reservations map[string]rental.Reservation
	items        map[string][]rental.ReservationItem

	snapshotErr error
	updateErr   error

	updated  []rental.Reservation
	replaced map[string][]rental.ReservationItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		articles:     map[string]rental.Article{},
		reservations: map[string]rental.Reservation{},
		items:        map[string][]rental.ReservationItem{},
		replaced:     map[string][]rental.ReservationItem{},
	}
}

func (store *fakeStore) GetArticle(ctx context.Context, id string) (rental.Article, error) {
	article, ok := store.articles[id]
	if !ok {
		return rental.Article{}, errors.New("article not found")
	}
	return article, nil
}

func (store *fakeStore) GetReservation(ctx context.Context, id string) (rental.Reservation, error) {
	reservation, ok := store.reservations[id]
	if !ok {
		return rental.Reservation{}, ErrorNotFound
	}
	return reservation, nil
}

func (store *fakeStore) UpdateReservation(ctx context.Context, reservation rental.Reservation) error {
	if store.updateErr != nil {
		return store.updateErr
	}
	store.reservations[reservation.ID] = reservation
	store.updated = append(store.updated, reservation)
	return nil
}

func (store *fakeStore) ListReservationsByStatus(ctx context.Context, statuses []rental.Status) ([]rental.Reservation, error) {
	var out []rental.Reservation
	for _, reservation := range store.reservations {
		for _, status := range statuses {
			if reservation.Status == status {
				out = append(out, reservation)
			}
		}
	}
	return out, nil
}

func (store *fakeStore) ListItemsByReservation(ctx context.Context, reservationID string) ([]rental.ReservationItem, error) {
	return store.items[reservationID], nil
}

func (store *fakeStore) ReplaceReservationItems(ctx context.Context, reservationID string, items []rental.ReservationItem) error {
	store.items[reservationID] = items
	store.replaced[reservationID] = items
	return nil
}

func (store *fakeStore) HoldingSnapshot(ctx context.Context) (availability.Snapshot, error) {
	if store.snapshotErr != nil {
		return availability.Snapshot{}, store.snapshotErr
	}
	var snapshot availability.Snapshot
	for _, reservation := range store.reservations {
		if reservation.Status.Holds() {
			snapshot.Reservations = append(snapshot.Reservations, reservation)
		}
	}
	for _, items := range store.items {
		snapshot.Items = append(snapshot.Items, items...)
	}
	return snapshot, nil
}

func seedArticle(store *fakeStore, id string, total, broken int, price string) {
	store.articles[id] = rental.Article{
		ID: id, Name: "Table ronde " + id, PricePerDay: price,
		TotalUnits: total, BrokenUnits: broken, Active: true,
	}
}

func seedReservation(store *fakeStore, id string, status rental.Status, start, end rental.Day, items ...rental.ReservationItem) {
	store.reservations[id] = rental.Reservation{
		ID: id, DateStart: start, DateEnd: end, Status: status,
		CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour),
	}
	if len(items) > 0 {
		store.items[id] = items
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to rental.Status
		allowed  bool
	}{
		{rental.StatusDraft, rental.StatusConfirmed, true},
		{rental.StatusConfirmed, rental.StatusInProgress, true},
		{rental.StatusInProgress, rental.StatusClosed, true},
		{rental.StatusDraft, rental.StatusCancelled, true},
		{rental.StatusConfirmed, rental.StatusCancelled, true},
		{rental.StatusInProgress, rental.StatusCancelled, true},
		{rental.StatusDraft, rental.StatusInProgress, false},
		{rental.StatusDraft, rental.StatusClosed, false},
		{rental.StatusConfirmed, rental.StatusDraft, false},
		{rental.StatusClosed, rental.StatusCancelled, false},
		{rental.StatusClosed, rental.StatusInProgress, false},
		{rental.StatusCancelled, rental.StatusConfirmed, false},
		{rental.StatusCancelled, rental.StatusCancelled, false},
	}
	for _, testCase := range cases {
		require.Equal(t, testCase.allowed, CanTransition(testCase.from, testCase.to),
			"%s -> %s", testCase.from, testCase.to)
	}
}

func TestNewItem_FreezesPriceSnapshot(t *testing.T) {
	store := newFakeStore()
	seedArticle(store, "a1", 5, 0, "100.00")

	item := NewItem("r1", store.articles["a1"], 2)

	require.NotEmpty(t, item.ID)
	require.Equal(t, "100.00", item.PriceSnapshot)

	// El precio del artículo cambia después: el snapshot no se mueve.
	article := store.articles["a1"]
	article.PricePerDay = "150.00"
	store.articles["a1"] = article

	require.Equal(t, "100.00", item.PriceSnapshot)
}

func TestConfirm(t *testing.T) {
	t.Run("allows when every item fits", func(t *testing.T) {
		store := newFakeStore()
		seedArticle(store, "a1", 5, 0, "10.00")
		seedReservation(store, "r1", rental.StatusDraft, "2025-09-10", "2025-09-12",
			rental.ReservationItem{ID: "i1", ReservationID: "r1", ArticleID: "a1", Quantity: 3, PriceSnapshot: "10.00"})

		err := Confirm(context.Background(), store, "r1")

		require.NoError(t, err)
		require.Equal(t, rental.StatusConfirmed, store.reservations["r1"].Status)
	})

	t.Run("reports requested and available per violating item", func(t *testing.T) {
		store := newFakeStore()
		seedArticle(store, "a1", 5, 0, "10.00")
		seedReservation(store, "held", rental.StatusInProgress, "2025-09-10", "2025-09-15",
			rental.ReservationItem{ID: "i0", ReservationID: "held", ArticleID: "a1", Quantity: 4, PriceSnapshot: "10.00"})
		seedReservation(store, "r1", rental.StatusDraft, "2025-09-12", "2025-09-13",
			rental.ReservationItem{ID: "i1", ReservationID: "r1", ArticleID: "a1", Quantity: 2, PriceSnapshot: "10.00"})

		err := Confirm(context.Background(), store, "r1")

		var violationError *ViolationError
		require.ErrorAs(t, err, &violationError)
		require.Len(t, violationError.Violations, 1)
		violation := violationError.Violations[0]
		require.Equal(t, "r1", violation.ReservationID)
		require.Equal(t, "a1", violation.ArticleID)
		require.Equal(t, 2, violation.Requested)
		require.Equal(t, 1, violation.Available)
		require.Equal(t, ReasonOverbook, violation.Reason)

		// Transición bloqueada, no aplicada a medias.
		require.Equal(t, rental.StatusDraft, store.reservations["r1"].Status)
	})

	t.Run("excludes itself from its own overlap set", func(t *testing.T) {
		// r1 ya está confirmada reteniendo las 5 unidades; editar sus
		// renglones manteniendo qty 5 debe pasar porque su propio hold
		// previo no cuenta en su contra.
		store := newFakeStore()
		seedArticle(store, "a1", 5, 0, "10.00")
		seedReservation(store, "r1", rental.StatusConfirmed, "2025-09-10", "2025-09-12",
			rental.ReservationItem{ID: "i1", ReservationID: "r1", ArticleID: "a1", Quantity: 5, PriceSnapshot: "10.00"})

		err := ReplaceItems(context.Background(), store, "r1", []rental.ReservationItem{
			{ID: "i2", ReservationID: "r1", ArticleID: "a1", Quantity: 5, PriceSnapshot: "10.00"},
		})
		require.NoError(t, err)
	})

	t.Run("missing article blocks conservatively", func(t *testing.T) {
		store := newFakeStore()
		seedReservation(store, "r1", rental.StatusDraft, "2025-09-10", "2025-09-12",
			rental.ReservationItem{ID: "i1", ReservationID: "r1", ArticleID: "ghost", Quantity: 1, PriceSnapshot: "10.00"})

		err := Confirm(context.Background(), store, "r1")

		var violationError *ViolationError
		require.ErrorAs(t, err, &violationError)
		require.Equal(t, ReasonArticleMissing, violationError.Violations[0].Reason)
	})

	t.Run("invalid transition", func(t *testing.T) {
		store := newFakeStore()
		seedReservation(store, "r1", rental.StatusClosed, "2025-09-10", "2025-09-12")

		err := Confirm(context.Background(), store, "r1")
		require.ErrorIs(t, err, ErrorInvalidTransition)
	})
}

func TestCancel(t *testing.T) {
	t.Run("allowed from any non-terminal state", func(t *testing.T) {
		for _, status := range []rental.Status{rental.StatusDraft, rental.StatusConfirmed, rental.StatusInProgress} {
			store := newFakeStore()
			seedReservation(store, "r1", status, "2025-09-10", "2025-09-12")

			require.NoError(t, Cancel(context.Background(), store, "r1"))
			require.Equal(t, rental.StatusCancelled, store.reservations["r1"].Status)
		}
	})

	t.Run("blocked on terminal states", func(t *testing.T) {
		for _, status := range []rental.Status{rental.StatusClosed, rental.StatusCancelled} {
			store := newFakeStore()
			seedReservation(store, "r1", status, "2025-09-10", "2025-09-12")

			require.ErrorIs(t, Cancel(context.Background(), store, "r1"), ErrorInvalidTransition)
		}
	})

	t.Run("refreshes UpdatedAt", func(t *testing.T) {
		store := newFakeStore()
		seedReservation(store, "r1", rental.StatusDraft, "2025-09-10", "2025-09-12")
		before := store.reservations["r1"].UpdatedAt

		require.NoError(t, Cancel(context.Background(), store, "r1"))
		require.True(t, store.reservations["r1"].UpdatedAt.After(before))
	})
}

func TestReplaceItems(t *testing.T) {
	t.Run("draft edits are unrestricted and wholesale", func(t *testing.T) {
		store := newFakeStore()
		seedArticle(store, "a1", 1, 0, "10.00")
		seedReservation(store, "r1", rental.StatusDraft, "2025-09-10", "2025-09-12",
			rental.ReservationItem{ID: "old", ReservationID: "r1", ArticleID: "a1", Quantity: 1, PriceSnapshot: "10.00"})

		newItems := []rental.ReservationItem{
			{ID: "new1", ReservationID: "r1", ArticleID: "a1", Quantity: 99, PriceSnapshot: "10.00"},
		}
		require.NoError(t, ReplaceItems(context.Background(), store, "r1", newItems))

		// El set anterior desaparece por completo.
		stored := store.items["r1"]
		require.Len(t, stored, 1)
		require.Equal(t, "new1", stored[0].ID)
	})

	t.Run("confirmed edits re-run the availability validation", func(t *testing.T) {
		store := newFakeStore()
		seedArticle(store, "a1", 5, 0, "10.00")
		seedReservation(store, "held", rental.StatusInProgress, "2025-09-10", "2025-09-15",
			rental.ReservationItem{ID: "i0", ReservationID: "held", ArticleID: "a1", Quantity: 5, PriceSnapshot: "10.00"})
		seedReservation(store, "r1", rental.StatusConfirmed, "2025-09-11", "2025-09-12")

		newItems := []rental.ReservationItem{
			{ID: "new1", ReservationID: "r1", ArticleID: "a1", Quantity: 1, PriceSnapshot: "10.00"},
		}
		err := ReplaceItems(context.Background(), store, "r1", newItems)

		var violationError *ViolationError
		require.ErrorAs(t, err, &violationError)
		require.Empty(t, store.replaced["r1"])
	})

	t.Run("invalid item rejected before touching storage", func(t *testing.T) {
		store := newFakeStore()
		seedReservation(store, "r1", rental.StatusDraft, "2025-09-10", "2025-09-12")

		err := ReplaceItems(context.Background(), store, "r1", []rental.ReservationItem{
			{ID: "bad", ReservationID: "r1", ArticleID: "a1", Quantity: 0},
		})
		require.ErrorIs(t, err, rental.ErrorInvalidItem)
	})
}

func TestReschedule(t *testing.T) {
	t.Run("rejects inverted interval", func(t *testing.T) {
		store := newFakeStore()
		err := Reschedule(context.Background(), store, "r1", "2025-09-12", "2025-09-10")
		require.ErrorIs(t, err, rental.ErrorInvalidReservation)
	})

	t.Run("confirmed reschedule into a held window is blocked", func(t *testing.T) {
		store := newFakeStore()
		seedArticle(store, "a1", 5, 0, "10.00")
		seedReservation(store, "held", rental.StatusInProgress, "2025-09-10", "2025-09-15",
			rental.ReservationItem{ID: "i0", ReservationID: "held", ArticleID: "a1", Quantity: 5, PriceSnapshot: "10.00"})
		seedReservation(store, "r1", rental.StatusConfirmed, "2025-09-20", "2025-09-21",
			rental.ReservationItem{ID: "i1", ReservationID: "r1", ArticleID: "a1", Quantity: 1, PriceSnapshot: "10.00"})

		err := Reschedule(context.Background(), store, "r1", "2025-09-12", "2025-09-13")

		var violationError *ViolationError
		require.ErrorAs(t, err, &violationError)
		// Las fechas no se tocan.
		require.Equal(t, rental.Day("2025-09-20"), store.reservations["r1"].DateStart)
	})

	t.Run("draft reschedule is free", func(t *testing.T) {
		store := newFakeStore()
		seedReservation(store, "r1", rental.StatusDraft, "2025-09-20", "2025-09-21")

		require.NoError(t, Reschedule(context.Background(), store, "r1", "2025-09-01", "2025-09-02"))
		require.Equal(t, rental.Day("2025-09-01"), store.reservations["r1"].DateStart)
	})
}

func TestRollForward(t *testing.T) {
	t.Run("promotes confirmed starting today and closes in_progress ending today", func(t *testing.T) {
		store := newFakeStore()
		seedArticle(store, "a1", 5, 0, "10.00")
		seedReservation(store, "starts", rental.StatusConfirmed, "2025-09-10", "2025-09-12",
			rental.ReservationItem{ID: "i1", ReservationID: "starts", ArticleID: "a1", Quantity: 2, PriceSnapshot: "10.00"})
		seedReservation(store, "ends", rental.StatusInProgress, "2025-09-05", "2025-09-10",
			rental.ReservationItem{ID: "i2", ReservationID: "ends", ArticleID: "a1", Quantity: 1, PriceSnapshot: "10.00"})
		seedReservation(store, "later", rental.StatusConfirmed, "2025-09-20", "2025-09-22")

		report, err := RollForward(context.Background(), store, "2025-09-10")

		require.NoError(t, err)
		require.Equal(t, []string{"starts"}, report.Promoted)
		require.Equal(t, []string{"ends"}, report.Closed)
		require.Empty(t, report.Violations)
		require.Equal(t, rental.StatusInProgress, store.reservations["starts"].Status)
		require.Equal(t, rental.StatusClosed, store.reservations["ends"].Status)
		require.Equal(t, rental.StatusConfirmed, store.reservations["later"].Status)
	})

	t.Run("re-validates at hand-over and keeps violators confirmed", func(t *testing.T) {
		// Entre la confirmación y la entrega física apareció otra reserva
		// que retiene todo el stock: la promoción se bloquea acá.
		store := newFakeStore()
		seedArticle(store, "a1", 5, 0, "10.00")
		seedReservation(store, "held", rental.StatusInProgress, "2025-09-08", "2025-09-15",
			rental.ReservationItem{ID: "i0", ReservationID: "held", ArticleID: "a1", Quantity: 5, PriceSnapshot: "10.00"})
		seedReservation(store, "starts", rental.StatusConfirmed, "2025-09-10", "2025-09-12",
			rental.ReservationItem{ID: "i1", ReservationID: "starts", ArticleID: "a1", Quantity: 1, PriceSnapshot: "10.00"})

		report, err := RollForward(context.Background(), store, "2025-09-10")

		require.NoError(t, err)
		require.Empty(t, report.Promoted)
		require.Len(t, report.Violations, 1)
		require.Equal(t, "starts", report.Violations[0].ReservationID)
		require.Equal(t, 1, report.Violations[0].Requested)
		require.Equal(t, 0, report.Violations[0].Available)
		require.Equal(t, rental.StatusConfirmed, store.reservations["starts"].Status)
	})

	t.Run("closing needs no availability check", func(t *testing.T) {
		store := newFakeStore()
		// Sin artículo en el store: cerrar igual funciona.
		seedReservation(store, "ends", rental.StatusInProgress, "2025-09-05", "2025-09-10",
			rental.ReservationItem{ID: "i2", ReservationID: "ends", ArticleID: "ghost", Quantity: 1, PriceSnapshot: "10.00"})

		report, err := RollForward(context.Background(), store, "2025-09-10")

		require.NoError(t, err)
		require.Equal(t, []string{"ends"}, report.Closed)
	})
}
