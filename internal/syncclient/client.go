// Package syncclient corre la sincronización del lado dispositivo:
// empuja el dataset local completo, y solo ante una respuesta totalmente
// exitosa reemplaza el store local (todo-o-nada: un fallo de red o un
// request interrumpido no puede corromper el storage local).
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	syncapi "github.com/Lelo88/rental-sync-golang/internal/sync"
)

// Clases de fallo: la app debe distinguir "sin respuesta" de un rechazo
// HTTP autoritativo, y el pin inválido es terminal para el intento.
var (
	ErrorNetwork      = errors.New("sync request failed before reaching the server")
	ErrorUnauthorized = errors.New("sync rejected: invalid pin")
	ErrorServer       = errors.New("sync rejected by server")
)

// Outcome resume el resultado visible de una pasada.
type Outcome string

const (
	// OutcomeFull: todo sincronizado sin rechazos.
	OutcomeFull Outcome = "full"
	// OutcomePartial: sincronizado pero con reservas rechazadas por el
	// guard; la app nunca debe reportar éxito pleno en este caso.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed: la pasada no mutó nada local.
	OutcomeFailed Outcome = "failed"
)

// Result es lo que la app muestra tras una pasada de sync.
type Result struct {
	Outcome    Outcome
	Violations []string
	ServerTime string
}

// Store es la superficie del storage local que usa el cliente: juntar el
// dataset para el push y reemplazarlo atómicamente con la respuesta.
type Store interface {
	DatasetForPush(ctx context.Context) (syncapi.Push, error)
	ApplyPull(ctx context.Context, response syncapi.Response) error
}

// Client empuja el estado local y aplica la respuesta autoritativa.
type Client struct {
	endpoint   string
	pin        string
	store      Store
	httpClient *http.Client
}

// New crea el cliente de sync.
func New(endpoint, pin string, store Store) *Client {
	return &Client{
		endpoint:   endpoint,
		pin:        pin,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run ejecuta una pasada completa de sincronización.
func (client *Client) Run(ctx context.Context) (Result, error) {
	push, err := client.store.DatasetForPush(ctx)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	body, err := json.Marshal(syncapi.Request{Push: push})
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-pin", client.pin)

	httpResponse, err := client.httpClient.Do(request)
	if err != nil {
		// Fallo de transporte: nunca llegó respuesta, nada local se toca.
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: %v", ErrorNetwork, err)
	}
	defer httpResponse.Body.Close()

	switch {
	case httpResponse.StatusCode == http.StatusUnauthorized:
		// Terminal para este intento: no se reintenta solo.
		return Result{Outcome: OutcomeFailed}, ErrorUnauthorized
	case httpResponse.StatusCode != http.StatusOK:
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: status %d", ErrorServer, httpResponse.StatusCode)
	}

	var response syncapi.Response
	if err := json.NewDecoder(httpResponse.Body).Decode(&response); err != nil {
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: malformed response body", ErrorServer)
	}

	// Recién acá, con la respuesta completa en mano, se reemplaza lo local.
	if err := client.store.ApplyPull(ctx, response); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	result := Result{Outcome: OutcomeFull, ServerTime: response.ServerTime}
	if len(response.Errors) > 0 {
		// Errors no baja el status HTTP: hay que inspeccionarlo siempre.
		result.Outcome = OutcomePartial
		for _, violation := range response.Errors {
			result.Violations = append(result.Violations,
				fmt.Sprintf("reservation %s article %s: requested %d, available %d (%s)",
					violation.ReservationID, violation.ArticleID, violation.Requested, violation.Available, violation.Reason))
		}
	}
	return result, nil
}
