package articles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Lelo88/rental-sync-golang/internal/httpx"
	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// ServiceAPI define lo que el handler necesita.
// Permite testear handlers con stubs sin tocar DB.
type ServiceAPI interface {
	Create(ctx context.Context, input CreateArticleInput) (rental.Article, error)
	List(ctx context.Context, page, limit int, query string) ([]rental.Article, int, error)
	Get(ctx context.Context, id string) (rental.Article, error)
	Update(ctx context.Context, id string, input UpdateArticleInput) (rental.Article, error)
	Delete(ctx context.Context, id string) error
}

// Handler HTTP para artículos.
// Solo traduce HTTP <-> dominio (service).
type Handler struct {
	service ServiceAPI
}

// NewHandler crea un handler de artículos.
func NewHandler(service ServiceAPI) *Handler {
	return &Handler{service: service}
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Create maneja POST /articles.
func (handler *Handler) Create(writer http.ResponseWriter, request *http.Request) {
	var input CreateArticleInput
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	article, err := handler.service.Create(request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrorInvalidInput):
			httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "invalid input data")
		case errors.Is(err, ErrorDuplicateName):
			httpx.Fail(writer, request, http.StatusConflict, "conflict", "article name already exists")
		default:
			// No filtramos detalles internos.
			httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "unexpected error")
		}
		return
	}

	httpx.OK(writer, request, http.StatusCreated, article)
}

// List maneja GET /articles con paginación y búsqueda.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	page, limit, err := parsePagination(request)
	if err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_pagination", "invalid pagination parameters")
		return
	}

	query := strings.TrimSpace(request.URL.Query().Get("query"))

	articles, total, err := handler.service.List(request.Context(), page, limit, query)
	if err != nil {
		switch {
		case errors.Is(err, ErrorInvalidInput):
			httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "invalid input data")
		default:
			httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "unexpected error")
		}
		return
	}

	httpx.OK(writer, request, http.StatusOK, map[string]any{
		"articles": articles,
		"pagination": pagination{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	})
}

// parsePagination parsea page y limit con defaults y límites razonables.
func parsePagination(request *http.Request) (int, int, error) {
	const (
		defaultPage  = 1
		defaultLimit = 20
		maxLimit     = 100
	)

	query := request.URL.Query()

	page := defaultPage
	limit := defaultLimit

	if value := strings.TrimSpace(query.Get("page")); value != "" {
		pageNumber, err := strconv.Atoi(value)
		if err != nil || pageNumber < 1 {
			return 0, 0, err
		}
		page = pageNumber
	}

	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limitNumber, err := strconv.Atoi(value)
		if err != nil || limitNumber < 1 {
			return 0, 0, err
		}
		if limitNumber > maxLimit {
			limitNumber = maxLimit
		}
		limit = limitNumber
	}

	return page, limit, nil
}

// GetByID maneja GET /articles/{id}.
// Valida que el id sea UUID porque en DB es uuid; evita errores innecesarios.
func (handler *Handler) GetByID(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return
	}

	article, err := handler.service.Get(request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrorNotFound):
			httpx.Fail(writer, request, http.StatusNotFound, "not_found", "article not found")
		default:
			httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "unexpected error")
		}
		return
	}

	httpx.OK(writer, request, http.StatusOK, article)
}

// Patch maneja PATCH /articles/{id}.
func (handler *Handler) Patch(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return
	}

	// Primero leemos raw para saber qué campos vinieron.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(request.Body).Decode(&raw); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	// Re-encode y decode al struct para reutilizar tags y tipos.
	byteJson, _ := json.Marshal(raw)

	var input UpdateArticleInput
	if err := json.Unmarshal(byteJson, &input); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	// Manejo explícito de description:
	// - Si el cliente envió "description": null => queremos setear NULL.
	// - Si NO envió "description" => no queremos tocar.
	_, descPresent := raw["description"]
	input.DescriptionPresent = descPresent

	article, err := handler.service.Update(request.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrorInvalidInput):
			httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "invalid input data")
		case errors.Is(err, ErrorNotFound):
			httpx.Fail(writer, request, http.StatusNotFound, "not_found", "article not found")
		case errors.Is(err, ErrorDuplicateName):
			httpx.Fail(writer, request, http.StatusConflict, "conflict", "article name already exists")
		default:
			httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "unexpected error")
		}
		return
	}

	httpx.OK(writer, request, http.StatusOK, article)
}

// Delete maneja DELETE /articles/{id}.
func (handler *Handler) Delete(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return
	}

	err := handler.service.Delete(request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrorNotFound):
			httpx.Fail(writer, request, http.StatusNotFound, "not_found", "article not found")
		case errors.Is(err, ErrorReferenced):
			// Con historial colgando no se borra: desactivar es el camino.
			httpx.Fail(writer, request, http.StatusConflict, "referenced", "article is referenced by reservation history")
		default:
			httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "unexpected error")
		}
		return
	}

	// 204 No Content: respuesta vacía.
	writer.WriteHeader(http.StatusNoContent)
}
