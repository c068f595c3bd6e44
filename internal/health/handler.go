package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Lelo88/rental-sync-golang/internal/httpx"
)

// Pinger es lo único que /ready necesita del pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler encapsula endpoints de health.
type Handler struct {
	database Pinger
}

// New crea un handler de health.
func New(database Pinger) *Handler {
	return &Handler{database: database}
}

// Health indica si el proceso está vivo.
// NO chequea base de datos. Eso es de /ready.
func (handler *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready indica si el proceso puede atender tráfico real: pool configurado
// y base alcanzable.
func (handler *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if handler.database == nil {
		httpx.Fail(w, r, http.StatusServiceUnavailable, "not_ready", "database pool not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := handler.database.Ping(ctx); err != nil {
		httpx.Fail(w, r, http.StatusServiceUnavailable, "not_ready", "database is not reachable")
		return
	}

	httpx.OK(w, r, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
