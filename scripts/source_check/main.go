package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/services"
)

// Probe symbols every upstream is known to carry, used for the one-day
// test fetch.
var probeSymbols = map[string]string{
	pricefeed.SourceMetals:      "XAU",
	pricefeed.SourceCommodities: "XAU",
	pricefeed.SourceCommoditic:  "gold",
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Display credential status (without showing actual values)
	fmt.Println("=== Price Source Credentials Check ===")
	fmt.Printf("Metals API Key:      %s\n", statusString(cfg.Sources.MetalsKey != ""))
	fmt.Printf("Commodities API Key: %s\n", statusString(cfg.Sources.CommoditiesKey != ""))
	fmt.Printf("Commoditic API Key:  %s\n", statusString(cfg.Sources.CommoditicKey != ""))
	fmt.Println()

	sources := services.DefaultSources(cfg)
	if len(sources) == 0 {
		log.Fatalf("❌ No sources configured. Set METALS_API_KEY, COMMODITIES_API_KEY or COMMODITIC_API_KEY in your .env file.")
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	// One-day window ending yesterday: every upstream has published
	// yesterday's close, so an empty answer still proves auth works.
	end := pricefeed.DateOf(time.Now().UTC().AddDate(0, 0, -1))
	ivl := pricefeed.Interval{Start: end, End: end}

	failures := 0
	for _, name := range names {
		adapter := sources[name]
		symbol := probeSymbols[name]

		fmt.Printf("Probing %s with %q over %s...\n", name, symbol, ivl)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		points, err := adapter.FetchDaily(ctx, symbol, ivl)
		cancel()

		switch {
		case err == nil:
			fmt.Printf("✅ %s: OK (%d points)\n", name, len(points))
		case pricefeed.IsAuth(err):
			failures++
			fmt.Printf("❌ %s: authentication failed: %v\n", name, err)
			fmt.Println("   The API key is invalid, expired, or out of quota.")
		case pricefeed.IsTransient(err):
			failures++
			fmt.Printf("⚠️  %s: transport failure: %v\n", name, err)
			fmt.Println("   This might be a network or upstream issue rather than credentials.")
		default:
			failures++
			fmt.Printf("⚠️  %s: unexpected failure: %v\n", name, err)
		}
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	if failures == 0 {
		fmt.Println("✅ All configured sources are reachable and authenticated.")
		return
	}
	log.Fatalf("❌ %d of %d sources failed the probe", failures, len(names))
}

func statusString(set bool) string {
	if set {
		return "[SET]"
	}
	return "[NOT SET]"
}
