// Package server wires the authentication service together and runs its
// HTTP surface until a termination signal arrives.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/netx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/config"
	"github.com/dmitrijs2005/honeykeeper/internal/server/httpapi"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	services *Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	for _, w := range c.Checks() {
		logger.Warn(ctx, w.Message, "check", w.ID)
	}

	if c.SecretKey == "" {
		key, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, err
		}
		c.SecretKey = key
		logger.Warn(ctx, "no secret key configured, tokens will not survive a restart")
	}

	s, err := BuildServices(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, services: s}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Handler returns the HTTP routes of the service.
func (app *App) Handler() *httpapi.Handler {
	return httpapi.NewHandler(app.services.Auth, app.services.Users, app.services.Metrics.Handler(), app.logger)
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "auth_mode", app.config.AuthMode)

	app.initSignalHandler(cancelFunc)

	err := netx.Serve(ctx, app.config.EndpointAddrHTTP, app.Handler().Routes(), app.logger)
	if cerr := app.services.Close(); cerr != nil {
		app.logger.Error(ctx, "close storage", "error", cerr)
	}
	return err
}
