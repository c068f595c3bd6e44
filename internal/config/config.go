package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config agrupa la configuración necesaria para correr el backend.
type Config struct {
	Port        string
	DatabaseURL string
	AppPin      string
}

// Load lee variables de entorno y valida lo mínimo indispensable.
func Load() (Config, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}
	// Normalizamos por si alguien manda ":8080"
	port = strings.TrimPrefix(port, ":")

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return Config{}, fmt.Errorf("missing required env var: DATABASE_URL")
	}

	appPin := strings.TrimSpace(os.Getenv("APP_PIN"))
	if appPin == "" {
		return Config{}, fmt.Errorf("missing required env var: APP_PIN")
	}

	return Config{
		Port:        port,
		DatabaseURL: databaseURL,
		AppPin:      appPin,
	}, nil
}

// AgentConfig agrupa la configuración del proceso local del dispositivo.
type AgentConfig struct {
	ServerURL    string
	Pin          string
	DatabasePath string
	SyncInterval time.Duration
}

// LoadAgent lee la configuración del agente. El intervalo default es de
// 15 minutos, el cronograma clásico de la sincronización automática.
func LoadAgent() (AgentConfig, error) {
	serverURL := strings.TrimSpace(os.Getenv("SYNC_URL"))
	if serverURL == "" {
		return AgentConfig{}, fmt.Errorf("missing required env var: SYNC_URL")
	}

	pin := strings.TrimSpace(os.Getenv("SYNC_PIN"))
	if pin == "" {
		return AgentConfig{}, fmt.Errorf("missing required env var: SYNC_PIN")
	}

	interval := 15 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("SYNC_INTERVAL")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return AgentConfig{}, fmt.Errorf("invalid SYNC_INTERVAL: %q", raw)
		}
		interval = parsed
	}

	return AgentConfig{
		ServerURL:    serverURL,
		Pin:          pin,
		DatabasePath: LocalDatabasePath(),
		SyncInterval: interval,
	}, nil
}

// LocalDatabasePath resuelve la ruta del SQLite local. Los comandos
// administrativos del agente solo necesitan esto, sin la configuración
// de sync completa.
func LocalDatabasePath() string {
	path := strings.TrimSpace(os.Getenv("LOCAL_DB_PATH"))
	if path == "" {
		return "rental.db"
	}
	return path
}
