// Package cli provides common initialization utilities shared by
// cmd/financas and cmd/journal-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financas/internal/backend"
	"financas/internal/config"
	"financas/internal/ledger"
	"financas/internal/log"
	"financas/internal/session"
)

// SetupLogger builds the process logger from cfg, writing to w, and sets it
// as the default logger. An invalid level falls back to info.
func SetupLogger(cfg *config.Config, w io.Writer) *log.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Writer = w
	if cfg != nil {
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			logCfg.Level = level
		}
		logCfg.Format = cfg.LogFormat
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Stores bundles the session and ledger stores over one backend.
type Stores struct {
	Sessions *session.Store
	Ledger   *ledger.Store
	Cleanup  backend.CleanupFunc
}

// OpenStores creates the backend selected by cfg and the stores on top of it.
func OpenStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Stores, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.New(ctx, res.Store, session.WithLogger(logger))
	if err != nil {
		_ = res.Cleanup()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if res.Publisher != nil {
		opts = append(opts, ledger.WithPublisher(res.Publisher))
	}

	return &Stores{
		Sessions: sessions,
		Ledger:   ledger.New(sessions, res.Store, opts...),
		Cleanup:  res.Cleanup,
	}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
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
