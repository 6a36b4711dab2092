/**
 * @description
 * One-shot USD backfill CLI. Recomputes price_in_usd for price rows where
 * it is missing, applying each source's quote convention. Runs against the
 * already-migrated schema; the steady-state pipeline is untouched.
 *
 * @dependencies
 * - backend/internal/services
 */

package main

import (
	"context"
	"flag"
	"log"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/db"
	"github.com/materia-project/backend/internal/services"
)

func main() {
	source := flag.String("source", "", "limit the backfill to one source's price rows")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	svc := services.NewBackfillService(pgDB)
	res, err := svc.BackfillUSD(context.Background(), *source)
	if err != nil {
		log.Fatalf("usd backfill failed: %v", err)
	}

	log.Printf("✅ USD backfill: %d scanned, %d updated, %d skipped", res.Scanned, res.Updated, res.Skipped)
}
