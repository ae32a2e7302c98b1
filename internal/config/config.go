package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"uttala"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Library  Library
	Progress Progress
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache + session snapshot configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing resume tickets.
type Security struct {
	TicketSecret string        `env:"TICKET_SECRET,notEmpty"`
	TicketTTL    time.Duration `env:"TICKET_TTL" envDefault:"24h"`
}

// Library governs the word library and its import/export surface.
type Library struct {
	DefaultLanguage string `env:"LIBRARY_DEFAULT_LANGUAGE" envDefault:"sv-SE"`
	ImportMaxBytes  int64  `env:"LIBRARY_IMPORT_MAX_BYTES" envDefault:"33554432"`
	ArchiveSnapshot bool   `env:"LIBRARY_ARCHIVE_SNAPSHOTS" envDefault:"true"`
}

// Progress governs scoreboard and session snapshot behavior.
type Progress struct {
	SnapshotTTL   time.Duration `env:"PROGRESS_SNAPSHOT_TTL" envDefault:"12h"`
	ScoreboardTop int           `env:"PROGRESS_SCOREBOARD_TOP" envDefault:"50"`
}

// CORS holds Cross-Origin Resource Sharing configuration for the browser client.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
