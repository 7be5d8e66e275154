// Command gastos-worker consumes chat messages from the broker, records the
// expenses they contain and publishes replies and alerts.
package main

import (
	"context"
	"os"

	"gastos/internal/amqp"
	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting gastos-worker", "backend", cfg.DataBackend)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	amqpClient, err := amqp.NewClient(ctx, amqp.Config{
		URL:           cfg.AMQPURL,
		Exchange:      cfg.AMQPExchange,
		MessagesQueue: cfg.AMQPMessagesQueue,
		RepliesQueue:  cfg.AMQPRepliesQueue,
		AlertsQueue:   cfg.AMQPAlertsQueue,
		EventsQueue:   cfg.AMQPEventsQueue,
		Prefetch:      cfg.AMQPPrefetch,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	app, err := cli.Bootstrap(ctx, cfg, logger,
		cli.WithNotifier(amqpClient),
		cli.WithKeywordEvents(amqpClient))
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	app.Caches.StartCleanup(cfg.CacheCleanupInterval)

	var syncer *services.CategorySyncProcessor
	if app.Backend.CategorySource != nil {
		syncer = services.NewCategorySyncProcessor(app.Categories,
			services.CategorySyncConfig{PollInterval: cfg.CategorySyncInterval}, logger)
		if err := syncer.Start(ctx); err != nil {
			logger.Error("Failed to start category sync", log.FieldError, err)
		}
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewMessageWorker(app.Expenses, amqpClient, app.Categorizer, logger)
	if err := w.Run(ctx, amqpClient); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
	if syncer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer stopCancel()
		if err := syncer.Stop(stopCtx); err != nil {
			logger.Warn("Category sync did not stop cleanly", log.FieldError, err)
		}
	}
}
