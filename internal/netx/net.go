// Package netx holds the HTTP plumbing shared by the authentication server
// and the honeychecker.
package netx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/honeykeeper/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Serve runs an HTTP server on address until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, address string, h http.Handler, logger logging.Logger) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "shutdown failed", "error", err)
		}
	}()

	logger.Info(ctx, "Starting HTTP server", "address", address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ClientIP returns the host part of r.RemoteAddr, or RemoteAddr unchanged
// when it carries no port (as after chi's RealIP middleware).
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
