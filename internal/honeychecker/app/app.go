// Package app runs the standalone honeychecker service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker/config"
	"github.com/dmitrijs2005/honeykeeper/internal/honeychecker/storage"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/netx"
	"golang.org/x/time/rate"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  honeychecker.Store
	db     *sql.DB
}

// openStore picks the storage backend named in the config.
func openStore(ctx context.Context, c *config.Config) (honeychecker.Store, *sql.DB, error) {
	switch c.Storage {
	case "memory":
		return storage.NewMemory(), nil, nil
	case "postgres":
		return storage.Open(ctx, storage.Postgres, c.DatabaseDSN)
	default:
		return storage.Open(ctx, storage.SQLite, c.DatabaseDSN)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	store, db, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	return &App{config: c, logger: logger, store: store, db: db}, nil
}

func (app *App) limiter() *rate.Limiter {
	if app.config.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(app.config.RateLimit), app.config.RateBurst)
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	app.logger.Info(ctx, "Starting honeychecker...", "storage", app.config.Storage)

	srv := honeychecker.NewServer(app.store, app.limiter(), app.logger)
	err := netx.Serve(ctx, app.config.EndpointAddrHTTP, srv.Routes(), app.logger)

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(ctx, "close storage", "error", cerr)
		}
	}
	return err
}
