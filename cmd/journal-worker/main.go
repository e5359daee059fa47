// Command journal-worker consumes ledger events from RabbitMQ and appends
// one row per event to a Google Sheets journal.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/log"
	gsheet "financas/internal/sheets/google"
	"financas/internal/worker"
)

const (
	statsInterval   = time.Minute
	cleanupInterval = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, os.Stdout).WithComponent(log.ComponentWorker)
	logger.Info("Starting journal-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration incomplete", log.FieldError, err.Error())
		os.Exit(1)
	}

	journal, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		JournalSheet:    cfg.GoogleJournalSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, gsheet.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets journal ready", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqp.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	w := worker.NewJournalWorker(journal, worker.WithLogger(logger))

	cacheManager := cache.NewManager(logger.Logger)
	cacheManager.Register(w.Cleaner())
	cacheManager.StartCleanup(cleanupInterval)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		cacheManager.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err.Error())
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, w.HandleEvent)
	})
	g.Go(func() error {
		reportStats(gctx, logger, w)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption stopped", log.FieldError, err.Error())
		cacheManager.Stop()
		_ = amqpClient.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	s := w.Stats()
	logger.Info("Journal worker stopped",
		"appended", s.Appended,
		"duplicate", s.Duplicate,
		"dropped", s.Dropped,
		"failed", s.Failed)
}

// reportStats logs the worker counters until ctx is done.
func reportStats(ctx context.Context, logger *log.Logger, w *worker.JournalWorker) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := w.Stats()
			logger.InfoContext(ctx, "Journal worker stats",
				"appended", s.Appended,
				"duplicate", s.Duplicate,
				"dropped", s.Dropped,
				"failed", s.Failed)
		}
	}
}
