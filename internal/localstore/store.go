// Package localstore es el storage local del dispositivo, sobre SQLite.
// Lo posee y muta exclusivamente el proceso local: no hay contención
// entre procesos, la contención real vive en el backend compartido.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Lelo88/rental-sync-golang/internal/availability"
	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// ErrorNotFound marca un id inexistente en el store local.
var ErrorNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	description TEXT,
	price_per_day TEXT NOT NULL,
	total_units INTEGER NOT NULL,
	broken_units INTEGER NOT NULL,
	low_stock_alert INTEGER,
	deposit_unit TEXT,
	active INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	date_start TEXT NOT NULL,
	date_end TEXT NOT NULL,
	client_name TEXT,
	client_phone TEXT,
	note TEXT,
	status TEXT NOT NULL,
	deposit TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reservation_items (
	id TEXT PRIMARY KEY,
	reservation_id TEXT NOT NULL,
	article_id TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price_snapshot TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_reservations_status ON reservations(status);
CREATE INDEX IF NOT EXISTS ix_items_reservation ON reservation_items(reservation_id);
`

// Store es el storage local completo del dispositivo.
type Store struct {
	database *sql.DB
}

// Open abre (o crea) la base local y configura pragmas.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{database: database}, nil
}

// Close cierra la base local.
func (store *Store) Close() error {
	return store.database.Close()
}

const timeLayout = time.RFC3339Nano

func formatTime(instant time.Time) string {
	return instant.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// --- Articles ---

// CreateArticle inserta un artículo nuevo.
func (store *Store) CreateArticle(ctx context.Context, article rental.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}
	const query = `
		INSERT INTO articles (id, name, category, description, price_per_day, total_units, broken_units, low_stock_alert, deposit_unit, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := store.database.ExecContext(ctx, query,
		article.ID, article.Name, article.Category, article.Description, article.PricePerDay,
		article.TotalUnits, article.BrokenUnits, article.LowStockAlert, article.DepositUnit,
		article.Active, formatTime(article.CreatedAt), formatTime(article.UpdatedAt))
	return err
}

const articleColumns = "id, name, category, description, price_per_day, total_units, broken_units, low_stock_alert, deposit_unit, active, created_at, updated_at"

func scanArticle(row interface{ Scan(...any) error }) (rental.Article, error) {
	var article rental.Article
	var createdAt, updatedAt string
	err := row.Scan(
		&article.ID, &article.Name, &article.Category, &article.Description, &article.PricePerDay,
		&article.TotalUnits, &article.BrokenUnits, &article.LowStockAlert, &article.DepositUnit,
		&article.Active, &createdAt, &updatedAt)
	if err != nil {
		return rental.Article{}, err
	}
	article.CreatedAt = parseTime(createdAt)
	article.UpdatedAt = parseTime(updatedAt)
	return article, nil
}

// GetArticle lee un artículo por id.
func (store *Store) GetArticle(ctx context.Context, id string) (rental.Article, error) {
	row := store.database.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles WHERE id = ?;", id)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rental.Article{}, ErrorNotFound
	}
	return article, err
}

// UpdateArticle pisa el artículo completo y refresca updated_at.
func (store *Store) UpdateArticle(ctx context.Context, article rental.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}
	const query = `
		UPDATE articles
		SET name = ?, category = ?, description = ?, price_per_day = ?, total_units = ?, broken_units = ?, low_stock_alert = ?, deposit_unit = ?, active = ?, updated_at = ?
		WHERE id = ?;
	`
	result, err := store.database.ExecContext(ctx, query,
		article.Name, article.Category, article.Description, article.PricePerDay,
		article.TotalUnits, article.BrokenUnits, article.LowStockAlert, article.DepositUnit,
		article.Active, formatTime(time.Now()), article.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteArticle borra un artículo por id.
func (store *Store) DeleteArticle(ctx context.Context, id string) error {
	result, err := store.database.ExecContext(ctx, "DELETE FROM articles WHERE id = ?;", id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListArticles devuelve todos los artículos locales.
func (store *Store) ListArticles(ctx context.Context) ([]rental.Article, error) {
	rows, err := store.database.QueryContext(ctx, "SELECT "+articleColumns+" FROM articles ORDER BY name;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []rental.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// --- Reservations ---

// CreateReservation inserta una reserva nueva.
func (store *Store) CreateReservation(ctx context.Context, reservation rental.Reservation) error {
	if err := reservation.Validate(); err != nil {
		return err
	}
	const query = `
		INSERT INTO reservations (id, date_start, date_end, client_name, client_phone, note, status, deposit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := store.database.ExecContext(ctx, query,
		reservation.ID, string(reservation.DateStart), string(reservation.DateEnd),
		reservation.ClientName, reservation.ClientPhone, reservation.Note,
		string(reservation.Status), reservation.Deposit,
		formatTime(reservation.CreatedAt), formatTime(reservation.UpdatedAt))
	return err
}

const reservationColumns = "id, date_start, date_end, client_name, client_phone, note, status, deposit, created_at, updated_at"

func scanReservation(row interface{ Scan(...any) error }) (rental.Reservation, error) {
	var reservation rental.Reservation
	var dateStart, dateEnd, status, createdAt, updatedAt string
	err := row.Scan(
		&reservation.ID, &dateStart, &dateEnd, &reservation.ClientName, &reservation.ClientPhone,
		&reservation.Note, &status, &reservation.Deposit, &createdAt, &updatedAt)
	if err != nil {
		return rental.Reservation{}, err
	}
	reservation.DateStart = rental.Day(dateStart)
	reservation.DateEnd = rental.Day(dateEnd)
	reservation.Status = rental.Status(status)
	reservation.CreatedAt = parseTime(createdAt)
	reservation.UpdatedAt = parseTime(updatedAt)
	return reservation, nil
}

// GetReservation lee una reserva por id.
func (store *Store) GetReservation(ctx context.Context, id string) (rental.Reservation, error) {
	row := store.database.QueryRowContext(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE id = ?;", id)
	reservation, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rental.Reservation{}, ErrorNotFound
	}
	return reservation, err
}

// UpdateReservation pisa la reserva completa. UpdatedAt lo fija el caller
// (el ciclo de vida lo refresca en cada transición o edición).
func (store *Store) UpdateReservation(ctx context.Context, reservation rental.Reservation) error {
	if err := reservation.Validate(); err != nil {
		return err
	}
	const query = `
		UPDATE reservations
		SET date_start = ?, date_end = ?, client_name = ?, client_phone = ?, note = ?, status = ?, deposit = ?, updated_at = ?
		WHERE id = ?;
	`
	result, err := store.database.ExecContext(ctx, query,
		string(reservation.DateStart), string(reservation.DateEnd),
		reservation.ClientName, reservation.ClientPhone, reservation.Note,
		string(reservation.Status), reservation.Deposit,
		formatTime(reservation.UpdatedAt), reservation.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteReservation borra una reserva por id.
func (store *Store) DeleteReservation(ctx context.Context, id string) error {
	result, err := store.database.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?;", id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListReservations devuelve todas las reservas locales.
func (store *Store) ListReservations(ctx context.Context) ([]rental.Reservation, error) {
	return store.queryReservations(ctx, "SELECT "+reservationColumns+" FROM reservations ORDER BY date_start, id;")
}

// ListReservationsByStatus devuelve las reservas cuyo status está en el
// conjunto dado (consulta requerida por el contrato de persistencia).
func (store *Store) ListReservationsByStatus(ctx context.Context, statuses []rental.Status) ([]rental.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for index, status := range statuses {
		placeholders[index] = "?"
		args[index] = string(status)
	}
	query := "SELECT " + reservationColumns + " FROM reservations WHERE status IN (" + strings.Join(placeholders, ", ") + ") ORDER BY date_start, id;"
	return store.queryReservations(ctx, query, args...)
}

func (store *Store) queryReservations(ctx context.Context, query string, args ...any) ([]rental.Reservation, error) {
	rows, err := store.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []rental.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

// --- Reservation items ---

const itemColumns = "id, reservation_id, article_id, quantity, price_snapshot"

// CreateReservationItem inserta un renglón nuevo.
func (store *Store) CreateReservationItem(ctx context.Context, item rental.ReservationItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	const query = `
		INSERT INTO reservation_items (id, reservation_id, article_id, quantity, price_snapshot)
		VALUES (?, ?, ?, ?, ?);
	`
	_, err := store.database.ExecContext(ctx, query,
		item.ID, item.ReservationID, item.ArticleID, item.Quantity, item.PriceSnapshot)
	return err
}

// GetReservationItem lee un renglón por id.
func (store *Store) GetReservationItem(ctx context.Context, id string) (rental.ReservationItem, error) {
	row := store.database.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM reservation_items WHERE id = ?;", id)
	var item rental.ReservationItem
	err := row.Scan(&item.ID, &item.ReservationID, &item.ArticleID, &item.Quantity, &item.PriceSnapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return rental.ReservationItem{}, ErrorNotFound
	}
	return item, err
}

// DeleteReservationItem borra un renglón por id.
func (store *Store) DeleteReservationItem(ctx context.Context, id string) error {
	result, err := store.database.ExecContext(ctx, "DELETE FROM reservation_items WHERE id = ?;", id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListReservationItems devuelve todos los renglones locales.
func (store *Store) ListReservationItems(ctx context.Context) ([]rental.ReservationItem, error) {
	return store.queryItems(ctx, "SELECT "+itemColumns+" FROM reservation_items ORDER BY reservation_id, id;")
}

// ListItemsByReservation devuelve los renglones de una reserva.
func (store *Store) ListItemsByReservation(ctx context.Context, reservationID string) ([]rental.ReservationItem, error) {
	return store.queryItems(ctx, "SELECT "+itemColumns+" FROM reservation_items WHERE reservation_id = ? ORDER BY id;", reservationID)
}

func (store *Store) queryItems(ctx context.Context, query string, args ...any) ([]rental.ReservationItem, error) {
	rows, err := store.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []rental.ReservationItem
	for rows.Next() {
		var item rental.ReservationItem
		if err := rows.Scan(&item.ID, &item.ReservationID, &item.ArticleID, &item.Quantity, &item.PriceSnapshot); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplaceReservationItems borra el set de renglones de la reserva y lo
// recrea en una transacción (la edición es un reemplazo atómico del set).
func (store *Store) ReplaceReservationItems(ctx context.Context, reservationID string, items []rental.ReservationItem) error {
	transaction, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer transaction.Rollback()

	if _, err := transaction.ExecContext(ctx, "DELETE FROM reservation_items WHERE reservation_id = ?;", reservationID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := transaction.ExecContext(ctx,
			"INSERT INTO reservation_items (id, reservation_id, article_id, quantity, price_snapshot) VALUES (?, ?, ?, ?, ?);",
			item.ID, reservationID, item.ArticleID, item.Quantity, item.PriceSnapshot); err != nil {
			return err
		}
	}
	return transaction.Commit()
}

// ReplaceAll vacía las tres tablas y carga el dataset recibido, todo en
// una transacción: es el replace todo-o-nada que usa el cliente de sync
// tras una respuesta exitosa. Ante cualquier fallo no queda mutación
// parcial.
func (store *Store) ReplaceAll(ctx context.Context, articles []rental.Article, reservations []rental.Reservation, items []rental.ReservationItem) error {
	transaction, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer transaction.Rollback()

	for _, table := range []string{"articles", "reservations", "reservation_items"} {
		if _, err := transaction.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
			return err
		}
	}
	for _, article := range articles {
		if _, err := transaction.ExecContext(ctx,
			"INSERT INTO articles ("+articleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);",
			article.ID, article.Name, article.Category, article.Description, article.PricePerDay,
			article.TotalUnits, article.BrokenUnits, article.LowStockAlert, article.DepositUnit,
			article.Active, formatTime(article.CreatedAt), formatTime(article.UpdatedAt)); err != nil {
			return err
		}
	}
	for _, reservation := range reservations {
		if _, err := transaction.ExecContext(ctx,
			"INSERT INTO reservations ("+reservationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);",
			reservation.ID, string(reservation.DateStart), string(reservation.DateEnd),
			reservation.ClientName, reservation.ClientPhone, reservation.Note,
			string(reservation.Status), reservation.Deposit,
			formatTime(reservation.CreatedAt), formatTime(reservation.UpdatedAt)); err != nil {
			return err
		}
	}
	for _, item := range items {
		if _, err := transaction.ExecContext(ctx,
			"INSERT INTO reservation_items ("+itemColumns+") VALUES (?, ?, ?, ?, ?);",
			item.ID, item.ReservationID, item.ArticleID, item.Quantity, item.PriceSnapshot); err != nil {
			return err
		}
	}
	return transaction.Commit()
}

// HoldingSnapshot carga el snapshot para el motor de disponibilidad:
// reservas en estados retenedores más todos los renglones.
func (store *Store) HoldingSnapshot(ctx context.Context) (availability.Snapshot, error) {
	reservations, err := store.ListReservationsByStatus(ctx, rental.HoldingStatuses)
	if err != nil {
		return availability.Snapshot{}, err
	}
	items, err := store.ListReservationItems(ctx)
	if err != nil {
		return availability.Snapshot{}, err
	}
	return availability.Snapshot{Reservations: reservations, Items: items}, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrorNotFound
	}
	return nil
}
