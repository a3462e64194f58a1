package main

import (
	"context"
	"os"
	"time"

	"fluxo/internal/backend"
	"fluxo/internal/cache"
	"fluxo/internal/cli"
	apphttp "fluxo/internal/http"
	applog "fluxo/internal/log"
	"fluxo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "type", backendCfg.Type)
		os.Exit(1)
	}

	cacheManager := cache.NewManager()
	cacheManager.StartCleanup(time.Minute)

	reports := services.NewReportService(result.Backend, cfg.ReportCacheSize, cfg.ReportCacheTTL, cacheManager)
	transactions := services.NewTransactionService(result.Backend, result.Backend, result.AMQP, reports)

	// Without a queue the worker never hears about writes; poll the local
	// store and push to the spreadsheet from this process instead.
	var syncProc *services.SyncProcessor
	if result.AMQP == nil && result.SQLite != nil && result.Remote != nil {
		procCfg := services.DefaultSyncProcessorConfig()
		procCfg.PollInterval = cfg.SyncInterval
		procCfg.BatchSize = cfg.SyncBatchSize
		syncProc = services.NewSyncProcessor(result.SQLite, result.Remote, procCfg)
		if err := syncProc.Start(context.Background()); err != nil {
			logger.Error("Failed to start sync processor", "error", err)
		} else {
			logger.Info("Poll-based sync processor started", "interval", cfg.SyncInterval)
		}
	}

	srv := apphttp.NewServer(cfg, transactions, reports)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if syncProc != nil {
			if err := syncProc.Stop(shutdownCtx); err != nil {
				logger.Error("Sync processor stop error", "error", err)
			}
		}
		cacheManager.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting fluxo server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
