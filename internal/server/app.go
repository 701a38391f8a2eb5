// Package server wires the auth service together: configuration, database,
// migrations, the services layer and the REST endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cuppie/cuppie-auth/internal/cryptox"
	"github.com/cuppie/cuppie-auth/internal/logging"
	"github.com/cuppie/cuppie-auth/internal/server/auth"
	"github.com/cuppie/cuppie-auth/internal/server/config"
	"github.com/cuppie/cuppie-auth/internal/server/repositories/repomanager"
	"github.com/cuppie/cuppie-auth/internal/server/rest"
	"github.com/cuppie/cuppie-auth/internal/server/services"
)

// App holds the assembled service.
type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *rest.Server
}

// NewApp builds the service from configuration: opens the database, runs
// migrations and assembles the REST server. The caller runs it with Run.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			return nil, fmt.Errorf("initializing sentry: %w", err)
		}
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	issuer := auth.NewIssuer([]byte(cfg.SecretKey), cfg.Issuer, cfg.Audience,
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)

	svc := services.NewAuthService(db, repos, issuer, &cryptox.Hasher{}, logger,
		cfg.RefreshTokenLength)

	handler := rest.NewHandler(svc, logger)
	srv := rest.NewServer(cfg.EndpointAddr, handler, logger)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

// Run serves until SIGINT/SIGTERM, then shuts down and flushes pending error
// reports.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer a.db.Close()
	defer sentry.Flush(2 * time.Second)

	return a.server.Run(ctx)
}

// NewLogger builds the service's default logger: slog JSON to stdout.
func NewLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}
