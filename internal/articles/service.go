package articles

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// Errores de dominio (no HTTP). El handler los traduce a status codes.
var (
	ErrorInvalidInput  = errors.New("invalid input")
	ErrorDuplicateName = errors.New("duplicate article name")
	ErrorNotFound      = errors.New("article not found")
	ErrorReferenced    = errors.New("article referenced by reservation history")
)

// RepositoryAPI define lo que el service necesita del repositorio.
type RepositoryAPI interface {
	Insert(ctx context.Context, input CreateArticleInput) (rental.Article, error)
	List(ctx context.Context, nameQuery string, limit, offset int) ([]rental.Article, error)
	Count(ctx context.Context, nameQuery string) (int, error)
	GetByID(ctx context.Context, id string) (rental.Article, error)
	Update(ctx context.Context, id string, input UpdateArticleInput) (rental.Article, error)
	Delete(ctx context.Context, id string) error
}

// Service contiene reglas de negocio de artículos.
type Service struct {
	repository RepositoryAPI
}

// NewService crea un service de artículos.
func NewService(repository RepositoryAPI) *Service {
	return &Service{repository: repository}
}

// Create valida reglas y crea el artículo en DB. Los artículos nacen
// activos; la desactivación es un PATCH posterior.
func (service *Service) Create(ctx context.Context, input CreateArticleInput) (rental.Article, error) {
	// Normalización mínima.
	input.Name = strings.TrimSpace(input.Name)

	// Validaciones de negocio (refuerzan constraints DB).
	if input.Name == "" {
		return rental.Article{}, ErrorInvalidInput
	}
	if strings.TrimSpace(input.PricePerDay) == "" {
		return rental.Article{}, ErrorInvalidInput
	}
	if input.TotalUnits < 0 || input.BrokenUnits < 0 {
		return rental.Article{}, ErrorInvalidInput
	}
	// Las roturas nunca superan el stock físico.
	if input.BrokenUnits > input.TotalUnits {
		return rental.Article{}, ErrorInvalidInput
	}
	if input.LowStockAlert != nil && *input.LowStockAlert < 0 {
		return rental.Article{}, ErrorInvalidInput
	}

	article, err := service.repository.Insert(ctx, input)
	if err != nil {
		if errors.Is(err, ErrorDuplicateName) {
			return rental.Article{}, ErrorDuplicateName
		}
		return rental.Article{}, err
	}
	return article, nil
}

// List pagina artículos con búsqueda opcional por nombre.
func (service *Service) List(ctx context.Context, page, limit int, nameQuery string) ([]rental.Article, int, error) {
	if page < 1 || limit < 1 {
		return nil, 0, ErrorInvalidInput
	}

	nameQuery = strings.TrimSpace(nameQuery)
	offset := (page - 1) * limit

	articles, err := service.repository.List(ctx, nameQuery, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := service.repository.Count(ctx, nameQuery)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Get obtiene un artículo por ID.
// Nota: el service no valida formato UUID; eso es del handler (capa HTTP).
func (service *Service) Get(ctx context.Context, id string) (rental.Article, error) {
	article, err := service.repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Article{}, ErrorNotFound
		}
		return rental.Article{}, err
	}
	return article, nil
}

// Update valida reglas y actualiza parcialmente un artículo. El caso de
// uso de roturas ("casse") pasa por acá: subir BrokenUnits saca unidades
// del pool alquilable y la disponibilidad lo refleja al instante.
func (service *Service) Update(ctx context.Context, id string, input UpdateArticleInput) (rental.Article, error) {
	// Debe venir al menos un campo.
	if input.empty() {
		return rental.Article{}, ErrorInvalidInput
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return rental.Article{}, ErrorInvalidInput
		}
		input.Name = &name
	}
	if input.PricePerDay != nil {
		price := strings.TrimSpace(*input.PricePerDay)
		if price == "" {
			return rental.Article{}, ErrorInvalidInput
		}
		input.PricePerDay = &price
	}
	if input.TotalUnits != nil && *input.TotalUnits < 0 {
		return rental.Article{}, ErrorInvalidInput
	}
	if input.BrokenUnits != nil && *input.BrokenUnits < 0 {
		return rental.Article{}, ErrorInvalidInput
	}
	if input.LowStockAlert != nil && *input.LowStockAlert < 0 {
		return rental.Article{}, ErrorInvalidInput
	}

	// BrokenUnits <= TotalUnits se chequea contra el estado resultante,
	// no solo contra el payload: un PATCH puede tocar una sola de las dos.
	if input.TotalUnits != nil || input.BrokenUnits != nil {
		current, err := service.Get(ctx, id)
		if err != nil {
			return rental.Article{}, err
		}
		total := current.TotalUnits
		broken := current.BrokenUnits
		if input.TotalUnits != nil {
			total = *input.TotalUnits
		}
		if input.BrokenUnits != nil {
			broken = *input.BrokenUnits
		}
		if broken > total {
			return rental.Article{}, ErrorInvalidInput
		}
	}

	article, err := service.repository.Update(ctx, id, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrorNotFound):
			return rental.Article{}, ErrorNotFound
		case errors.Is(err, ErrorDuplicateName):
			return rental.Article{}, ErrorDuplicateName
		default:
			return rental.Article{}, err
		}
	}
	return article, nil
}

// Delete elimina un artículo por ID. Referenciado por historial => el
// repo devuelve ErrorReferenced y no se borra (desactivar es el camino).
func (service *Service) Delete(ctx context.Context, id string) error {
	return service.repository.Delete(ctx, id)
}
