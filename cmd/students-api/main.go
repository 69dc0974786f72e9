// students-api serves the student records API and its browser client.
//
// STARTUP SEQUENCE:
//  1. Load configuration (environment, optional YAML file)
//  2. Initialise the logger
//  3. Select storage: the configured database, or in-memory if it cannot
//     be reached within the connect timeout
//  4. Register all HTTP routes and start the server
//  5. Block until SIGINT/SIGTERM, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	DATABASE_URL=postgres://localhost:5432/studentdb?sslmode=disable go run ./cmd/students-api
//
// or with a config file:
//
//	go run ./cmd/students-api --config=config/local.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/svharshitha92-max/CRUD/internal/config"
	"github.com/svharshitha92-max/CRUD/internal/http/server"
	"github.com/svharshitha92-max/CRUD/internal/storage/selector"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "students-api",
		Short: "Serves the student records API",
		Long: `Serves the student records API and browser client.

Records are stored in the database named by DATABASE_URL (postgres:// or
sqlite://). If it is unset or unreachable at startup, an in-memory store
is used until the process exits.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"),
		"path to the configuration YAML file")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sel := selector.Select(ctx, cfg.DatabaseURL, cfg.ConnectTimeout, log)
	defer func() {
		if err := sel.Close(); err != nil {
			log.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	srv := server.New(cfg, sel.Store, sel)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started",
			slog.String("address", srv.Addr()),
			slog.String("storage", string(sel.Mode)),
		)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// setupLogger returns a *slog.Logger for the given environment:
// text at DEBUG for dev, JSON at DEBUG for staging, JSON at INFO for prod.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
