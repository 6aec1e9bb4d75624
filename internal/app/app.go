// Package app provides application lifecycle management for the reconciler.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/config"
)

// ReconcilerApp encapsulates all components needed to run the reconciler.
// It provides lifecycle management and graceful shutdown capabilities.
type ReconcilerApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the scheduled jobs in the background and serves the admin
// API. It blocks until the HTTP server stops or encounters an error.
func (app *ReconcilerApp) Start() error {
	go func() {
		if err := app.components.Scheduler.Start(app.ctx); err != nil {
			slog.Error("Scheduler failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// It stops the scheduler and then shuts down the HTTP server.
func (app *ReconcilerApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.Scheduler.Stop(); err != nil {
		slog.Error("Failed to stop scheduler", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.httpServer.Shutdown(shutdownCtx)

	if app.cancelFunc != nil {
		app.cancelFunc()
	}
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *ReconcilerApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *ReconcilerApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components.
func (app *ReconcilerApp) Components() *AppComponents {
	return app.components
}
