// El agente es el proceso local del dispositivo: posee el store SQLite,
// promueve reservas según el calendario (roll forward) y empuja el
// estado al backend compartido a intervalo fijo. Con argumentos corre un
// comando administrativo (export/import de volcados) y termina.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Lelo88/rental-sync-golang/internal/config"
	"github.com/Lelo88/rental-sync-golang/internal/lifecycle"
	"github.com/Lelo88/rental-sync-golang/internal/localstore"
	"github.com/Lelo88/rental-sync-golang/internal/rental"
	"github.com/Lelo88/rental-sync-golang/internal/syncclient"
)

const rollForwardInterval = time.Hour

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 {
		store, err := localstore.Open(config.LocalDatabasePath())
		if err != nil {
			log.Fatal(err)
		}
		err = runCommand(context.Background(), store, os.Args[1:], os.Stdout)
		store.Close()
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.LoadAgent()
	if err != nil {
		log.Fatal(err)
	}

	store, err := localstore.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	client := syncclient.New(cfg.ServerURL, cfg.Pin, store)
	runner := syncclient.NewRunner(client, cfg.SyncInterval, nil)

	ctx := context.Background()
	group, groupCtx := errgroup.WithContext(ctx)

	// Pasada inicial: roll forward + sync antes de entrar al cronograma.
	rollForward(ctx, store)
	runner.TriggerNow(ctx)

	group.Go(func() error {
		return runner.Run(groupCtx)
	})
	group.Go(func() error {
		ticker := time.NewTicker(rollForwardInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case <-ticker.C:
				rollForward(groupCtx, store)
			}
		}
	})

	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
}

func rollForward(ctx context.Context, store *localstore.Store) {
	report, err := lifecycle.RollForward(ctx, store, rental.Today())
	if err != nil {
		log.Printf("roll forward failed: %v", err)
		return
	}
	if len(report.Promoted) > 0 || len(report.Closed) > 0 || len(report.Violations) > 0 {
		log.Printf("roll forward: %d promoted, %d closed, %d violation(s)",
			len(report.Promoted), len(report.Closed), len(report.Violations))
	}
}
