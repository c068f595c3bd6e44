package syncclient

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"
)

// Runner dispara pasadas de sync a intervalo fijo. A lo sumo una pasada
// en vuelo: un tick que llega con otra pasada corriendo se descarta, el
// flag alcanza porque todo corre en un solo proceso por dispositivo.
type Runner struct {
	client   *Client
	interval time.Duration
	inFlight atomic.Bool
	onResult func(Result, error)
}

// NewRunner crea el runner periódico. onResult puede ser nil.
func NewRunner(client *Client, interval time.Duration, onResult func(Result, error)) *Runner {
	return &Runner{client: client, interval: interval, onResult: onResult}
}

// TriggerNow corre una pasada fuera de cronograma (sync manual). Si ya
// hay una en vuelo no hace nada y devuelve false.
func (runner *Runner) TriggerNow(ctx context.Context) bool {
	if !runner.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer runner.inFlight.Store(false)
	runner.report(runner.client.Run(ctx))
	return true
}

// Run bloquea corriendo el cronograma hasta que el contexto se cancele o
// el servidor rechace el pin (terminal: sin reintento automático).
func (runner *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(runner.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !runner.inFlight.CompareAndSwap(false, true) {
				continue
			}
			result, err := runner.client.Run(ctx)
			runner.inFlight.Store(false)
			runner.report(result, err)
			if errors.Is(err, ErrorUnauthorized) {
				return err
			}
		}
	}
}

func (runner *Runner) report(result Result, err error) {
	if runner.onResult != nil {
		runner.onResult(result, err)
		return
	}
	if err != nil {
		log.Printf("sync failed: %v", err)
		return
	}
	log.Printf("sync %s (%d violation(s))", result.Outcome, len(result.Violations))
}
