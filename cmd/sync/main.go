package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/db"
	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/pricefeed/commoditiesapi"
	"github.com/materia-project/backend/internal/services"
)

func main() {
	source := flag.String("source", "", "source to sync (default: every configured source)")
	from := flag.String("from", "", "interval start, YYYY-MM-DD (requires -to)")
	to := flag.String("to", "", "interval end, YYYY-MM-DD (requires -from)")
	days := flag.Int("days", 0, "sync a rolling window of N days ending today")
	symbols := flag.Bool("symbols", false, "refresh the symbol directory instead of syncing prices")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := db.Migrate(pgDB); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	ctx := context.Background()
	if err := services.EnsureSourceRows(ctx, pgDB, cfg); err != nil {
		log.Fatalf("failed to seed api sources: %v", err)
	}

	if *symbols {
		if cfg.Sources.CommoditiesKey == "" {
			log.Fatalf("COMMODITIES_API_KEY is required for a symbol refresh")
		}
		svc := services.NewSymbolService(pgDB, commoditiesapi.NewClient(cfg))
		res, err := svc.RefreshSymbols(ctx)
		if err != nil {
			log.Fatalf("symbol refresh failed: %v", err)
		}
		log.Printf("✅ Symbol refresh: %d directory entries, %d scanned, %d matched, %d updated",
			res.Directory, res.Scanned, res.Matched, res.Updated)
		return
	}

	redisClient, cleanup := connectRedis(cfg)
	defer cleanup()

	service := services.NewPriceSyncService(pgDB, redisClient, cfg, services.DefaultSources(cfg))

	ivl, err := intervalFromFlags(*from, *to, *days)
	if err != nil {
		log.Fatalf("%v", err)
	}

	names := []string{*source}
	if *source == "" {
		names = service.SourceNames()
		sort.Strings(names)
		if len(names) == 0 {
			log.Fatalf("no sources configured; set METALS_API_KEY, COMMODITIES_API_KEY or COMMODITIC_API_KEY")
		}
	}

	log.Println("🚀 Starting manual price sync...")

	failed := 0
	for _, name := range names {
		run, err := service.SyncSource(ctx, name, ivl)
		if err != nil {
			failed++
			log.Printf("❌ %s: %v", name, err)
		}
		if run != nil {
			printRun(run)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
	log.Println("✅ Manual price sync completed.")
}

// connectRedis prefers the configured Redis and falls back to an embedded
// instance, so the CLI works on machines with no Redis at all (progress
// events just stay local).
func connectRedis(cfg *config.Config) (*redis.Client, func()) {
	client, err := db.ConnectRedis(cfg)
	if err == nil {
		return client, func() {}
	}

	log.Printf("⚠️ Redis unavailable (%v), using embedded instance", err)
	mr, err := miniredis.Run()
	if err != nil {
		log.Fatalf("failed to start in-memory redis: %v", err)
	}
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr.Close
}

// intervalFromFlags resolves -from/-to/-days. With none set it returns the
// zero interval, which the service resolves to its default lookback window.
func intervalFromFlags(from, to string, days int) (pricefeed.Interval, error) {
	var ivl pricefeed.Interval

	if (from == "") != (to == "") {
		return ivl, fmt.Errorf("-from and -to must be set together")
	}
	if from != "" {
		start, err := time.Parse("2006-01-02", from)
		if err != nil {
			return ivl, fmt.Errorf("invalid -from %q, expected YYYY-MM-DD", from)
		}
		end, err := time.Parse("2006-01-02", to)
		if err != nil {
			return ivl, fmt.Errorf("invalid -to %q, expected YYYY-MM-DD", to)
		}
		if start.After(end) {
			return ivl, fmt.Errorf("-from is after -to")
		}
		return pricefeed.NewInterval(start, end), nil
	}

	if days < 0 {
		return ivl, fmt.Errorf("-days must be positive")
	}
	if days > 0 {
		end := pricefeed.DateOf(time.Now().UTC())
		return pricefeed.Interval{Start: end.AddDate(0, 0, -(days - 1)), End: end}, nil
	}
	return ivl, nil
}

func printRun(run *models.SyncRun) {
	status := "✅"
	if run.Status == models.RunStatusFailed {
		status = "❌"
	}
	log.Printf("%s %s %s..%s: %d materials, %d fetched, %d inserted, %d updated, %d skipped",
		status, run.Source,
		run.FromDate.Format("2006-01-02"), run.ToDate.Format("2006-01-02"),
		run.Materials, run.Fetched, run.Inserted, run.Updated, run.Skipped)
	if run.ErrorMessage != "" {
		log.Printf("   error: %s", run.ErrorMessage)
	}
	if run.Failures != "" {
		log.Printf("   failed units: %s", run.Failures)
	}
}
