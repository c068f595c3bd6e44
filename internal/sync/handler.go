package sync

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Lelo88/rental-sync-golang/internal/httpx"
)

// ServiceAPI define lo que el handler necesita del service.
// Permite testear el handler con stubs sin tocar DB.
type ServiceAPI interface {
	Sync(ctx context.Context, push Push) (Response, error)
}

// Handler HTTP del endpoint de sync. Solo traduce HTTP <-> dominio.
type Handler struct {
	service  ServiceAPI
	pin      string
	validate *validator.Validate
}

// NewHandler crea el handler de sync con el pin compartido configurado.
func NewHandler(service ServiceAPI, pin string) *Handler {
	return &Handler{
		service:  service,
		pin:      pin,
		validate: validator.New(),
	}
}

// Sync maneja POST /sync.
// El body de éxito es contrato fijo del endpoint (dataset + serverTime +
// errors), por eso se escribe directo y no con el sobre de httpx; los
// errores sí usan el sobre estándar.
func (handler *Handler) Sync(writer http.ResponseWriter, request *http.Request) {
	// Comparación en tiempo constante: el pin es un secreto compartido.
	pin := request.Header.Get("x-pin")
	if pin == "" || subtle.ConstantTimeCompare([]byte(pin), []byte(handler.pin)) != 1 {
		httpx.Fail(writer, request, http.StatusUnauthorized, "unauthorized", "missing or invalid pin")
		return
	}

	var syncRequest Request
	if err := json.NewDecoder(request.Body).Decode(&syncRequest); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	if err := handler.validate.Struct(syncRequest); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "invalid push payload")
		return
	}

	response, err := handler.service.Sync(request.Context(), syncRequest.Push)
	if err != nil {
		if errors.Is(err, ErrorInvalidPush) {
			httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "invalid push payload")
			return
		}
		// No filtramos detalles internos.
		httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "sync failed")
		return
	}

	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(writer).Encode(response); err != nil {
		// Headers ya enviados; no hay nada más seguro que loguear en el
		// middleware. El cliente verá el body truncado y lo tratará como
		// fallo de red.
		return
	}
}
