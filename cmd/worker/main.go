/**
 * @description
 * Worker Service Entry Point.
 * Runs the scheduled background jobs:
 * 1. Daily price sync for every configured source over the rolling lookback window.
 * 2. Weekly symbol directory refresh against the Commodities API.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/services
 * - github.com/robfig/cron/v3
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/db"
	"github.com/materia-project/backend/internal/logger"
	"github.com/materia-project/backend/internal/pricefeed/commoditiesapi"
	"github.com/materia-project/backend/internal/services"
)

func main() {
	logger.Info("🔥 Starting Materia Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Schema and Reference Data
	// Both binaries migrate so the worker can start on a fresh database
	// before the API ever has.
	if err := db.Migrate(pgDB); err != nil {
		logger.Fatal("Schema migration failed: %v", err)
	}
	if err := services.EnsureSourceRows(context.Background(), pgDB, cfg); err != nil {
		logger.Fatal("Source seeding failed: %v", err)
	}

	// 4. Initialize Services
	sources := services.DefaultSources(cfg)
	syncService := services.NewPriceSyncService(pgDB, redisClient, cfg, sources)

	// 5. Schedule Jobs
	c := cron.New()

	if _, err := c.AddFunc(cfg.Sync.PriceCron, func() {
		logger.Info("🔄 Scheduled price sync starting...")
		syncService.SyncAll(context.Background())
	}); err != nil {
		logger.Fatal("Invalid price sync schedule %q: %v", cfg.Sync.PriceCron, err)
	}

	if cfg.Sources.CommoditiesKey != "" {
		symbolService := services.NewSymbolService(pgDB, commoditiesapi.NewClient(cfg))
		if _, err := c.AddFunc(cfg.Sync.SymbolCron, func() {
			logger.Info("🔄 Scheduled symbol refresh starting...")
			res, err := symbolService.RefreshSymbols(context.Background())
			if err != nil {
				logger.Error("Symbol refresh failed: %v", err)
				return
			}
			logger.Info("Symbol refresh: %d directory entries, %d scanned, %d matched, %d updated",
				res.Directory, res.Scanned, res.Matched, res.Updated)
		}); err != nil {
			logger.Fatal("Invalid symbol refresh schedule %q: %v", cfg.Sync.SymbolCron, err)
		}
	} else {
		logger.Info("No Commodities API key configured, symbol refresh not scheduled")
	}

	c.Start()
	logger.Info("Worker scheduled: prices %q, symbols %q", cfg.Sync.PriceCron, cfg.Sync.SymbolCron)

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Error("Timed out waiting for running jobs to finish")
	}
	logger.Info("Worker exited.")
}
