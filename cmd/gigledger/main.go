package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gigledger/internal/amqp"
	"gigledger/internal/auth"
	"gigledger/internal/cache"
	"gigledger/internal/cli"
	apphttp "gigledger/internal/http"
	"gigledger/internal/insights"
	"gigledger/internal/log"
	"gigledger/internal/metrics"
	"gigledger/internal/middleware/ratelimit"
	"gigledger/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	loc := cli.Location(logger, cfg)

	be := cli.InitBackend(context.Background(), logger, cfg)
	reg := metrics.New()

	ins := insights.New(insights.Config{
		BaseURL:  cfg.InsightsBaseURL,
		Timeout:  cfg.InsightsTimeout,
		CacheTTL: cfg.InsightsCacheTTL,
		Logger:   logger.WithComponent(log.ComponentInsights).Logger,
		Recorder: reg,
	})
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(ins.Cache())
	caches.StartCleanup(cacheCleanupInterval)
	if err := reg.RegisterCache("insights", ins.Cache()); err != nil {
		logger.Warn("Failed to register cache metrics", log.FieldError, err)
	}

	var (
		insightsSrc services.InsightsSource
		catalog     services.CatalogSource
	)
	if ins.Configured() {
		insightsSrc, catalog = ins, ins
		logger.Info("Insights backend configured", "base_url", cfg.InsightsBaseURL)
	} else {
		logger.Info("Insights disabled - no INSIGHTS_BASE_URL provided")
	}

	// Saved days are published for the export worker; without a broker the
	// ledger still works and the export is skipped.
	var (
		publisher  services.LedgerPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP).Logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export", log.FieldError, err)
		} else {
			c.SetRecorder(reg)
			amqpClient, publisher = c, c
			logger.Info("AMQP client initialized - saved days will be exported by ledger-worker")
		}
	} else {
		logger.Info("AMQP disabled - saved days will not be exported")
	}

	svcLogger := logger.Logger
	profiles := services.NewProfileService(be.Store, svcLogger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Profiles:    profiles,
		Ledger:      services.NewLedgerService(be.Store, be.Store, publisher, ins, svcLogger),
		Goals:       services.NewGoalService(be.Store, ins, svcLogger),
		Investments: services.NewInvestmentService(be.Store, catalog, svcLogger),
		Dashboard:   services.NewDashboardService(profiles, be.Store, insightsSrc, svcLogger),
		Insights:    ins,
		Verifier:    auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer, cfg.SessionTTL),
		Metrics:     reg,
		Logger:      logger,
		Location:    loc,
		RateLimit: ratelimit.Config{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		Ready: be.Ping,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting gigledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
