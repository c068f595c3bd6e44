package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"

	"github.com/Lelo88/rental-sync-golang/internal/articles"
	"github.com/Lelo88/rental-sync-golang/internal/config"
	"github.com/Lelo88/rental-sync-golang/internal/db"
	"github.com/Lelo88/rental-sync-golang/internal/docs"
	"github.com/Lelo88/rental-sync-golang/internal/health"
	"github.com/Lelo88/rental-sync-golang/internal/httpx"
	syncapi "github.com/Lelo88/rental-sync-golang/internal/sync"
)

// appPool es la superficie del pool que usa el router. Interfaz para
// poder armar el router con fakes en tests.
type appPool interface {
	Ping(ctx context.Context) error
	Close()
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// appDeps permite inyectar dependencias en run para testearlo.
type appDeps struct {
	loadConfig     func() (config.Config, error)
	newPool        func(ctx context.Context, url string) (appPool, error)
	listenAndServe func(addr string, handler http.Handler) error
	logf           func(format string, args ...any)
}

var (
	loadConfigFn = config.Load
	newPoolFn    = func(ctx context.Context, url string) (appPool, error) {
		return db.NewPool(ctx, url)
	}
	listenAndServeFn = http.ListenAndServe
	logfFn           = log.Printf
	fatalf           = log.Fatal
)

func main() {
	// .env es opcional: en producción las variables vienen del entorno.
	_ = godotenv.Load()

	deps := appDeps{
		loadConfig:     loadConfigFn,
		newPool:        newPoolFn,
		listenAndServe: listenAndServeFn,
		logf:           logfFn,
	}
	if err := run(context.Background(), deps); err != nil {
		fatalf(err)
	}
}

func run(ctx context.Context, deps appDeps) error {
	cfg, err := deps.loadConfig()
	if err != nil {
		return err
	}

	pool, err := deps.newPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	router := buildRouter(pool, cfg.AppPin)

	addr := ":" + cfg.Port
	deps.logf("listening on %s", addr)
	return deps.listenAndServe(addr, router)
}

// buildRouter arma el router completo: middlewares base, health, docs,
// API de artículos y endpoint de sync.
func buildRouter(pool appPool, appPin string) chi.Router {
	router := chi.NewRouter()

	// Middlewares base para trazabilidad y estabilidad.
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	// Errores de routing se manejan a nivel router.
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusNotFound, "not_found", "resource not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	healthHandler := health.New(pool)
	router.Get("/health", healthHandler.Health)
	router.Get("/ready", healthHandler.Ready)

	docs.RegisterRoutes(router)

	articleHandler := articles.NewHandler(articles.NewService(articles.NewRepository(pool)))
	articles.RegisterRoutes(router, articleHandler)

	syncHandler := syncapi.NewHandler(syncapi.NewService(syncapi.NewRepository(pool)), appPin)
	syncapi.RegisterRoutes(router, syncHandler)

	return router
}
