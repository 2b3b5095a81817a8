package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mandadito/backend/internal/execution"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the HTTP API and the hourly auto-confirm sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.migrate(ctx); err != nil {
			return err
		}

		stopSweeps, err := a.startSweeps(ctx)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.AppURL,
			Handler:           a.handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveErr := make(chan error, 1)
		go func() {
			log.Info("starting HTTP server", "addr", cfg.AppURL, "storage", cfg.StorageDriver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}
		if err := stopSweeps(shutdownCtx); err != nil {
			log.Error("stop sweeps", "error", err)
		}
		log.Info("server shut down gracefully")
		return nil
	},
}

// startSweeps runs the periodic sweep on River when Postgres is the store and
// on an in-process cron schedule otherwise.
func (a *app) startSweeps(ctx context.Context) (func(context.Context) error, error) {
	if a.pool != nil {
		client, err := execution.NewClient(a.pool, a.tasks, a.cfg.SweepSchedule, a.log)
		if err != nil {
			return nil, err
		}
		if err := client.Start(ctx); err != nil {
			return nil, fmt.Errorf("start river client: %w", err)
		}
		a.log.Info("auto-confirm sweep scheduled on river", "schedule", a.cfg.SweepSchedule)
		return client.Stop, nil
	}

	sched, err := execution.NewScheduler(a.tasks, a.cfg.SweepSchedule, a.log)
	if err != nil {
		return nil, err
	}
	sched.Start()
	a.log.Info("auto-confirm sweep scheduled in process", "schedule", a.cfg.SweepSchedule)
	return sched.Stop, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
