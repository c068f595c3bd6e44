package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// DB es la superficie mínima de pgxpool.Pool que usa el repositorio.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository accede a la tabla articles.
// Contiene SQL y mapeo DB → modelo.
type Repository struct {
	database DB
}

// NewRepository crea un repositorio de artículos.
func NewRepository(database DB) *Repository {
	return &Repository{database: database}
}

const selectColumns = "id, name, category, description, price_per_day::text, total_units, broken_units, low_stock_alert, deposit_unit::text, active, created_at, updated_at"

func scanArticle(row pgx.Row) (rental.Article, error) {
	var article rental.Article
	err := row.Scan(
		&article.ID, &article.Name, &article.Category, &article.Description, &article.PricePerDay,
		&article.TotalUnits, &article.BrokenUnits, &article.LowStockAlert, &article.DepositUnit,
		&article.Active, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return rental.Article{}, err
	}
	return article, nil
}

// Insert crea un artículo y devuelve el registro persistido.
// Usamos RETURNING para obtener id y timestamps generados por DB.
func (repository *Repository) Insert(ctx context.Context, input CreateArticleInput) (rental.Article, error) {
	const query = `
		INSERT INTO articles (name, category, description, price_per_day, total_units, broken_units, low_stock_alert, deposit_unit, active)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8::numeric, true)
		RETURNING ` + selectColumns + `;
	`
	article, err := scanArticle(repository.database.QueryRow(ctx, query,
		input.Name, input.Category, input.Description, input.PricePerDay,
		input.TotalUnits, input.BrokenUnits, input.LowStockAlert, input.DepositUnit))
	if err != nil {
		// Detectar conflicto por índice unique (ux_articles_name).
		// Postgres: unique_violation = 23505
		var postgressError *pgconn.PgError
		if errors.As(err, &postgressError) && postgressError.Code == "23505" {
			return rental.Article{}, ErrorDuplicateName
		}
		return rental.Article{}, err
	}
	return article, nil
}

// List devuelve una página de artículos, filtrando por nombre si hay query.
func (repository *Repository) List(ctx context.Context, nameQuery string, limit, offset int) ([]rental.Article, error) {
	const query = `
		SELECT ` + selectColumns + `
		FROM articles
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY name
		LIMIT $2 OFFSET $3;
	`
	rows, err := repository.database.Query(ctx, query, nameQuery, limit, offset)
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

// Count devuelve el total de artículos que matchean la búsqueda.
func (repository *Repository) Count(ctx context.Context, nameQuery string) (int, error) {
	const query = `
		SELECT count(*)
		FROM articles
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%');
	`
	var total int
	err := repository.database.QueryRow(ctx, query, nameQuery).Scan(&total)
	return total, err
}

// GetByID lee un artículo por id.
func (repository *Repository) GetByID(ctx context.Context, id string) (rental.Article, error) {
	const query = `SELECT ` + selectColumns + ` FROM articles WHERE id = $1;`
	return scanArticle(repository.database.QueryRow(ctx, query, id))
}

// Update arma el SET dinámicamente con los campos presentes.
func (repository *Repository) Update(ctx context.Context, id string, input UpdateArticleInput) (rental.Article, error) {
	assignments := []string{}
	args := []any{}
	position := 1

	appendSet := func(column string, value any) {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, position))
		args = append(args, value)
		position++
	}

	if input.Name != nil {
		appendSet("name", *input.Name)
	}
	if input.Category != nil {
		appendSet("category", *input.Category)
	}
	if input.DescriptionPresent {
		// nil acá significa "description": null explícito => NULL en DB.
		appendSet("description", input.Description)
	}
	if input.PricePerDay != nil {
		appendSet("price_per_day", *input.PricePerDay)
	}
	if input.TotalUnits != nil {
		appendSet("total_units", *input.TotalUnits)
	}
	if input.BrokenUnits != nil {
		appendSet("broken_units", *input.BrokenUnits)
	}
	if input.LowStockAlert != nil {
		appendSet("low_stock_alert", *input.LowStockAlert)
	}
	if input.DepositUnit != nil {
		appendSet("deposit_unit", *input.DepositUnit)
	}
	if input.Active != nil {
		appendSet("active", *input.Active)
	}

	assignments = append(assignments, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE articles SET %s WHERE id = $%d RETURNING %s;",
		strings.Join(assignments, ", "), position, selectColumns)

	article, err := scanArticle(repository.database.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Article{}, ErrorNotFound
		}
		var postgressError *pgconn.PgError
		if errors.As(err, &postgressError) && postgressError.Code == "23505" {
			return rental.Article{}, ErrorDuplicateName
		}
		return rental.Article{}, err
	}
	return article, nil
}

// Delete borra un artículo por id. Si hay renglones de reservas que lo
// referencian, el FK lo bloquea (foreign_key_violation = 23503) y se
// expone como ErrorReferenced: el historial no se rompe.
func (repository *Repository) Delete(ctx context.Context, id string) error {
	tag, err := repository.database.Exec(ctx, "DELETE FROM articles WHERE id = $1;", id)
	if err != nil {
		var postgressError *pgconn.PgError
		if errors.As(err, &postgressError) && postgressError.Code == "23503" {
			return ErrorReferenced
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}
