package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apihttp "github.com/aretw0/autopilot/pkg/adapters/http"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// NewHandler builds the API handler for app.
func NewHandler(app *App, version string) http.Handler {
	return apihttp.NewHandler(app.Autopilot,
		apihttp.WithLogger(app.Logger),
		apihttp.WithMetrics(app.Metrics.Handler()),
		apihttp.WithVersion(version),
	)
}

// Serve runs the HTTP API on addr until ctx is cancelled, then shuts the
// server down and stops every run.
func Serve(ctx context.Context, app *App, addr, version string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewHandler(app, version),
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting Autopilot Server", "addr", addr, "units", app.Config.UnitsDir)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		app.Logger.Info("Start shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			if err := srv.Close(); err != nil {
				app.Logger.Error("Error killing server", "error", err)
			}
		}
		if _, err := app.Autopilot.StopAll(shutdownCtx); err != nil {
			app.Logger.Warn("Failed to stop runs", "error", err)
		}
		app.Autopilot.Wait()
		app.Logger.Info("Autopilot Server stopped gracefully")
		return nil
	}
}
