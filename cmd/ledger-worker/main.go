package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gigledger/internal/amqp"
	"gigledger/internal/cli"
	"gigledger/internal/log"
	"gigledger/internal/metrics"
	"gigledger/internal/sheets"
	gsheet "gigledger/internal/sheets/google"
	memsheet "gigledger/internal/sheets/memory"
	"gigledger/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	be := cli.InitBackend(context.Background(), logger, cfg)

	var exporter sheets.LedgerExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			Sheet:           cfg.GoogleLedgerSheet,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
	}

	reg := metrics.New()
	w := worker.NewExportWorker(be.Store, be.Tracker, exporter, cfg.SyncBatchSize,
		logger.WithComponent(log.ComponentWorker).Logger)
	w.SetRecorder(reg)

	var metricsSrv *http.Server
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", reg.Handler())
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", log.FieldError, err)
			}
		}()
	}

	// The poller catches days whose message was lost; backends without a
	// tracker rely on AMQP alone.
	poller := worker.NewPoller(w, cfg.SyncInterval, logger.WithComponent(log.ComponentWorker).Logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP).Logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient = c
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := poller.Stop(ctx); err != nil {
			logger.Warn("Poller stop error", log.FieldError, err)
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	// Marking days synced against the in-memory exporter would hide them
	// from a later spreadsheet export.
	switch {
	case be.Tracker == nil:
		logger.Info("Backend keeps no export state - periodic sync disabled", "backend", cfg.DataBackend)
	case cfg.GoogleSpreadsheetID == "":
		logger.Info("Periodic sync disabled - no spreadsheet to export to")
	default:
		if err := poller.Start(ctx); err != nil {
			logger.Error("Failed to start poller", log.FieldError, err)
		}
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeLedgerSync(ctx, w.HandleLedgerSync); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled - only periodic sync will run")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
