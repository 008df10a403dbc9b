// Package app provides application lifecycle management for pvpmeta-server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/db"
)

// App encapsulates all components needed to run the update server.
// It provides lifecycle management and graceful shutdown capabilities.
type App struct {
	config     *config.Config
	components *Components
	database   *db.Connection
	watcher    *config.Watcher
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the coordinator, the config watcher and the HTTP server.
// It blocks until the HTTP server stops. A coordinator failure, such as a
// failed bootstrap, closes the server and is returned.
func (app *App) Start() error {
	coordinatorErr := make(chan error, 1)
	go func() {
		if err := app.components.Coordinator.Start(app.ctx); err != nil {
			slog.Error("Update coordinator failed", "error", err)
			coordinatorErr <- err
			_ = app.httpServer.Close()
		}
	}()

	if app.watcher != nil {
		go func() {
			if err := app.watcher.Watch(app.ctx); err != nil {
				slog.Error("Config watcher failed", "error", err)
			}
		}()
	}

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	select {
	case err := <-coordinatorErr:
		return fmt.Errorf("update coordinator failed: %w", err)
	default:
		return nil
	}
}

// Stop gracefully stops the application with the given timeout. The
// coordinator is stopped first so the running task can record its outcome
// before the database is closed.
func (app *App) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.Coordinator.Stop(); err != nil {
		slog.Error("Failed to stop update coordinator", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			slog.Warn("Failed to close config watcher", "error", err)
		}
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		app.database = nil
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *App) GetConfig() *config.Config {
	return app.config
}

// GetComponents returns the wired update components
func (app *App) GetComponents() *Components {
	return app.components
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *App) GetHTTPServer() *http.Server {
	return app.httpServer
}
