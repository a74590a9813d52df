package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/hibiken/asynq"

	"github.com/simplesdash/simplesdash/cmd/simplesdash/cli"
	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/analytics/export"
	analytichttp "github.com/simplesdash/simplesdash/internal/analytics/http"
	"github.com/simplesdash/simplesdash/internal/app"
	"github.com/simplesdash/simplesdash/internal/filingstore"
	"github.com/simplesdash/simplesdash/internal/observability"
	"github.com/simplesdash/simplesdash/internal/platform/cache"
	"github.com/simplesdash/simplesdash/jobs"
	"github.com/simplesdash/simplesdash/report"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "report" {
		os.Exit(runReport(os.Args[2:]))
	}

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := app.SignalContext()
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	analyticsCache := analytics.NewCache(redisClient, cfg.ReportCacheTTL)
	analyticsService := analytics.NewService(analyticsCache, analytics.Config{
		MemoTTL: cfg.ReportMemoTTL,
		Options: cfg.AnalyticsOptions(),
	}, logger).WithMetrics(metrics)
	if err := analyticsService.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}

	store, closeStore, err := filingstore.Open(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		logger.Error("open file set store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)
	pdfExporter := export.NewPDFExporter(reportClient)

	var (
		warmup     analytichttp.WarmupEnqueuer
		jobHandler *jobs.Handler
	)
	if redisClient != nil {
		jobClient := jobs.NewClient(cfg.QueueRedis())
		defer closeQuietly(logger, "jobs client", jobClient.Close)
		warmup = jobClient

		inspector := asynq.NewInspector(cfg.QueueRedis())
		defer closeQuietly(logger, "inspector", inspector.Close)
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	analyticsHandler := analytichttp.NewHandler(logger, analyticsService, store, pdfExporter, warmup)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AnalyticsHandler: analyticsHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runReport builds a report from local files without Redis or a store.
// Logs go to stderr so stdout carries only the report.
func runReport(args []string) int {
	opts, err := cli.ParseReportArgs(args, os.Stderr)
	if err != nil {
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "report: load config: %v\n", err)
		return 1
	}
	service := analytics.NewService(nil, analytics.Config{Options: cfg.AnalyticsOptions()}, nil)
	opts.Stdout = os.Stdout
	ctx, stop := app.SignalContext()
	defer stop()
	return cli.ReportCommand(ctx, service, opts)
}

func closeQuietly(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn(name+" close", slog.Any("error", err))
	}
}
