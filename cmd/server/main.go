package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewreminder/internal/app"
	"reviewreminder/internal/handlers"
	"reviewreminder/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New()
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(a.Config.Mode)

	worker, err := services.NewReminderWorker(a.Scheduler, a.Config.Reminder.Schedule, a.Log)
	if err != nil {
		return err
	}
	worker.Start()

	router := handlers.NewRouter(worker, a.Ping, handlers.RouterConfig{
		AllowedOrigins: a.Config.HTTP.AllowedOrigins,
		TriggerSecret:  a.Config.Reminder.TriggerSecret,
	}, a.Log)

	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", srv.Addr).Str("schedule", a.Config.Reminder.Schedule).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	a.Log.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.Error().Err(err).Msg("http shutdown")
	}
	worker.Stop(shutdownCtx)
	return nil
}
