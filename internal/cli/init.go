// Package cli provides common CLI initialization utilities.
// It consolidates the startup steps shared by cmd/gigledger,
// cmd/ledger-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gigledger/internal/backend"
	"gigledger/internal/config"
	"gigledger/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default. It runs before the config is validated, so it
// reads the environment directly.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Location returns the ledger timezone, exiting on an unknown zone.
func Location(logger *log.Logger, cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid ledger timezone", log.FieldError, err, "timezone", cfg.LedgerTimezone)
		os.Exit(1)
	}
	return loc
}

// InitBackend opens the configured store.
// Returns the backend or exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.Create(ctx, logger.WithComponent(log.ComponentStorage).Logger, bc)
	if err != nil {
		logger.Error("Failed to initialize storage backend", log.FieldError, err, "backend", bc.Type.String())
		os.Exit(1)
	}
	return be
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete. cleanup gets a
// context bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
