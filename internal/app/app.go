// Package app provides application lifecycle management for the connector
// lifecycle server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/lifecycle"
)

// ConnectorApp runs the API server and the lifecycle controller
type ConnectorApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	ctx        context.Context
	cancelFunc context.CancelFunc
	cleanup    func()

	started        atomic.Bool
	controllerDone chan struct{}
}

// Start runs the lifecycle controller in the background and serves HTTP.
// It blocks until the HTTP server stops or fails.
func (app *ConnectorApp) Start() error {
	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	return app.Serve(listener)
}

// Serve is Start on an existing listener
func (app *ConnectorApp) Serve(listener net.Listener) error {
	if !app.started.CompareAndSwap(false, true) {
		return fmt.Errorf("server already started")
	}
	go func() {
		defer close(app.controllerDone)
		c := app.components
		if err := lifecycle.Run(app.ctx, c.Broker, c.Controller, c.Resync); err != nil {
			slog.Error("Lifecycle controller failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", listener.Addr().String())
	if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down within timeout, stops the controller and
// releases the store and the change feed.
func (app *ConnectorApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	shutdownErr := app.httpServer.Shutdown(shutdownCtx)

	if app.cancelFunc != nil {
		app.cancelFunc()
	}
	if app.started.Load() {
		select {
		case <-app.controllerDone:
		case <-shutdownCtx.Done():
			slog.Warn("Lifecycle controller did not stop in time")
		}
	}
	if app.cleanup != nil {
		app.cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}
	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *ConnectorApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *ConnectorApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components
func (app *ConnectorApp) Components() *AppComponents {
	return app.components
}
