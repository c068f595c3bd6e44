package articles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

type stubService struct{}

func (service *stubService) Create(ctx context.Context, in CreateArticleInput) (rental.Article, error) {
	return rental.Article{ID: "id", Name: in.Name, PricePerDay: in.PricePerDay, TotalUnits: in.TotalUnits, Active: true}, nil
}

func (service *stubService) List(ctx context.Context, page, limit int, query string) ([]rental.Article, int, error) {
	return []rental.Article{}, 0, nil
}

func (service *stubService) Get(ctx context.Context, id string) (rental.Article, error) {
	return rental.Article{ID: id}, nil
}

func (service *stubService) Update(ctx context.Context, id string, in UpdateArticleInput) (rental.Article, error) {
	return rental.Article{ID: id}, nil
}

func (service *stubService) Delete(ctx context.Context, id string) error {
	return nil
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewRouter()
	RegisterRoutes(router, NewHandler(&stubService{}))

	const id = "550e8400-e29b-41d4-a716-446655440000"

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "post articles",
			method:     http.MethodPost,
			path:       "/articles/",
			body:       `{"name":"Chaise pliante","pricePerDay":"10.00","totalUnits":5}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "get articles",
			method:     http.MethodGet,
			path:       "/articles/",
			wantStatus: http.StatusOK,
		},
		{
			name:       "get article by id",
			method:     http.MethodGet,
			path:       "/articles/" + id,
			wantStatus: http.StatusOK,
		},
		{
			name:       "patch article",
			method:     http.MethodPatch,
			path:       "/articles/" + id,
			body:       `{"name":"Chaise pliante blanche"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "delete article",
			method:     http.MethodDelete,
			path:       "/articles/" + id,
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			recorder := httptest.NewRecorder()

			router.ServeHTTP(recorder, req)

			require.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}
