package sync

import "github.com/go-chi/chi/v5"

// RegisterRoutes registra el endpoint de sync en el router.
// Métodos distintos de POST los rechaza el router con 405.
func RegisterRoutes(route chi.Router, handler *Handler) {
	route.Post("/sync", handler.Sync)
}
