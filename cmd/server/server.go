package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 20 * time.Second

// serve runs the http server until SIGINT or SIGTERM, then drains every
// component.
func (app *application) serve() error {
	app.Server = &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	served := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting server", zap.String("address", app.Server.Addr))
		served <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-sigCtx.Done():
	}
	app.Logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Upgraded websockets are hijacked, so Server.Shutdown does not wait for
	// them; app.Shutdown closes them through the hub.
	err := app.Server.Shutdown(ctx)
	if err != nil {
		app.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	app.Shutdown(ctx)
	if err != nil {
		return err
	}

	app.Logger.Info("Server stopped gracefully")
	return nil
}
