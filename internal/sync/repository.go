package sync

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// DB es la superficie mínima de pgxpool.Pool que usa el repositorio.
// Tener la interfaz permite testear con fakes sin levantar PostgreSQL.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository accede a las tablas articles, reservations y
// reservation_items. Contiene SQL y mapeo DB → modelo.
type Repository struct {
	database DB
}

// NewRepository crea el repositorio del backend compartido.
func NewRepository(database DB) *Repository {
	return &Repository{database: database}
}

// UpsertArticle inserta o pisa por id. updated_at lo fija la DB para que
// el reloj del cliente no retroceda timestamps.
func (repository *Repository) UpsertArticle(ctx context.Context, article rental.Article) error {
	const query = `
		INSERT INTO articles (id, name, category, description, price_per_day, total_units, broken_units, low_stock_alert, deposit_unit, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9::numeric, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			price_per_day = EXCLUDED.price_per_day,
			total_units = EXCLUDED.total_units,
			broken_units = EXCLUDED.broken_units,
			low_stock_alert = EXCLUDED.low_stock_alert,
			deposit_unit = EXCLUDED.deposit_unit,
			active = EXCLUDED.active,
			updated_at = now();
	`
	_, err := repository.database.Exec(ctx, query,
		article.ID, article.Name, article.Category, article.Description, article.PricePerDay,
		article.TotalUnits, article.BrokenUnits, article.LowStockAlert, article.DepositUnit,
		article.Active, article.CreatedAt)
	return err
}

// UpsertReservation inserta o pisa por id.
func (repository *Repository) UpsertReservation(ctx context.Context, reservation rental.Reservation) error {
	const query = `
		INSERT INTO reservations (id, date_start, date_end, client_name, client_phone, note, status, deposit, created_at, updated_at)
		VALUES ($1, $2::date, $3::date, $4, $5, $6, $7, $8::numeric, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			date_start = EXCLUDED.date_start,
			date_end = EXCLUDED.date_end,
			client_name = EXCLUDED.client_name,
			client_phone = EXCLUDED.client_phone,
			note = EXCLUDED.note,
			status = EXCLUDED.status,
			deposit = EXCLUDED.deposit,
			updated_at = now();
	`
	_, err := repository.database.Exec(ctx, query,
		reservation.ID, string(reservation.DateStart), string(reservation.DateEnd),
		reservation.ClientName, reservation.ClientPhone, reservation.Note,
		string(reservation.Status), reservation.Deposit, reservation.CreatedAt)
	return err
}

// UpsertReservationItem inserta o pisa por id. price_snapshot se pisa con
// el valor empujado: el snapshot lo congela el dispositivo al crear el
// renglón, acá solo se persiste.
func (repository *Repository) UpsertReservationItem(ctx context.Context, item rental.ReservationItem) error {
	const query = `
		INSERT INTO reservation_items (id, reservation_id, article_id, quantity, price_snapshot)
		VALUES ($1, $2, $3, $4, $5::numeric)
		ON CONFLICT (id) DO UPDATE SET
			reservation_id = EXCLUDED.reservation_id,
			article_id = EXCLUDED.article_id,
			quantity = EXCLUDED.quantity,
			price_snapshot = EXCLUDED.price_snapshot;
	`
	_, err := repository.database.Exec(ctx, query,
		item.ID, item.ReservationID, item.ArticleID, item.Quantity, item.PriceSnapshot)
	return err
}

// GetArticle devuelve la fila autoritativa del artículo.
func (repository *Repository) GetArticle(ctx context.Context, id string) (rental.Article, error) {
	const query = `
		SELECT id, name, category, description, price_per_day::text, total_units, broken_units, low_stock_alert, deposit_unit::text, active, created_at, updated_at
		FROM articles
		WHERE id = $1;
	`
	var article rental.Article
	err := repository.database.QueryRow(ctx, query, id).Scan(
		&article.ID, &article.Name, &article.Category, &article.Description, &article.PricePerDay,
		&article.TotalUnits, &article.BrokenUnits, &article.LowStockAlert, &article.DepositUnit,
		&article.Active, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return rental.Article{}, err
	}
	return article, nil
}

// OverlappingInProgressIDs implementa la consulta de solape del guard:
// intervalos inclusivos, solapan si date_start <= to y date_end >= from.
func (repository *Repository) OverlappingInProgressIDs(ctx context.Context, from, to rental.Day) ([]string, error) {
	const query = `
		SELECT id
		FROM reservations
		WHERE status = 'in_progress'
		  AND date_start <= $2::date
		  AND date_end >= $1::date;
	`
	rows, err := repository.database.Query(ctx, query, string(from), string(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SumItemQuantity suma las cantidades del artículo entre los renglones de
// las reservas dadas.
func (repository *Repository) SumItemQuantity(ctx context.Context, reservationIDs []string, articleID string) (int, error) {
	const query = `
		SELECT COALESCE(SUM(quantity), 0)
		FROM reservation_items
		WHERE reservation_id = ANY($1)
		  AND article_id = $2;
	`
	var total int
	err := repository.database.QueryRow(ctx, query, reservationIDs, articleID).Scan(&total)
	return total, err
}

// ListItemsByReservation devuelve los renglones almacenados de una reserva.
func (repository *Repository) ListItemsByReservation(ctx context.Context, reservationID string) ([]rental.ReservationItem, error) {
	const query = `
		SELECT id, reservation_id, article_id, quantity, price_snapshot::text
		FROM reservation_items
		WHERE reservation_id = $1
		ORDER BY id;
	`
	rows, err := repository.database.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListArticles devuelve todos los artículos (pull v1: dataset completo).
func (repository *Repository) ListArticles(ctx context.Context) ([]rental.Article, error) {
	const query = `
		SELECT id, name, category, description, price_per_day::text, total_units, broken_units, low_stock_alert, deposit_unit::text, active, created_at, updated_at
		FROM articles
		ORDER BY name;
	`
	rows, err := repository.database.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []rental.Article
	for rows.Next() {
		var article rental.Article
		if err := rows.Scan(
			&article.ID, &article.Name, &article.Category, &article.Description, &article.PricePerDay,
			&article.TotalUnits, &article.BrokenUnits, &article.LowStockAlert, &article.DepositUnit,
			&article.Active, &article.CreatedAt, &article.UpdatedAt); err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// ListReservations devuelve todas las reservas.
func (repository *Repository) ListReservations(ctx context.Context) ([]rental.Reservation, error) {
	const query = `
		SELECT id, date_start::text, date_end::text, client_name, client_phone, note, status, deposit::text, created_at, updated_at
		FROM reservations
		ORDER BY date_start, id;
	`
	rows, err := repository.database.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []rental.Reservation
	for rows.Next() {
		var reservation rental.Reservation
		var dateStart, dateEnd, status string
		if err := rows.Scan(
			&reservation.ID, &dateStart, &dateEnd, &reservation.ClientName, &reservation.ClientPhone,
			&reservation.Note, &status, &reservation.Deposit, &reservation.CreatedAt, &reservation.UpdatedAt); err != nil {
			return nil, err
		}
		reservation.DateStart = rental.Day(dateStart)
		reservation.DateEnd = rental.Day(dateEnd)
		reservation.Status = rental.Status(status)
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

// ListReservationItems devuelve todos los renglones.
func (repository *Repository) ListReservationItems(ctx context.Context) ([]rental.ReservationItem, error) {
	const query = `
		SELECT id, reservation_id, article_id, quantity, price_snapshot::text
		FROM reservation_items
		ORDER BY reservation_id, id;
	`
	rows, err := repository.database.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]rental.ReservationItem, error) {
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
