/**
 * @description
 * One-shot data importer CLI. Loads the curated raw-material sheet, the
 * logistics sheet directory, or reconciles the countries table against the
 * CMS. Structural problems exit non-zero; per-row issues are counted and
 * reported.
 *
 * @dependencies
 * - backend/internal/importer
 * - backend/internal/services (country reconciliation)
 */

package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/db"
	"github.com/materia-project/backend/internal/importer"
	"github.com/materia-project/backend/internal/integrations/strapi"
	"github.com/materia-project/backend/internal/services"
)

func main() {
	materials := flag.String("materials", "", "raw-material sheet to import (.csv or .xlsx)")
	logistics := flag.String("logistics", "", "directory holding the logistics sheets")
	countries := flag.Bool("countries", false, "reconcile the countries table against the CMS")
	flag.Parse()

	if *materials == "" && *logistics == "" && !*countries {
		flag.Usage()
		os.Exit(2)
	}

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

	// Countries run first so port rows can resolve their country by name.
	if *countries {
		if cfg.Services.StrapiURL == "" {
			log.Fatalf("STRAPI_API_URL is required for -countries")
		}
		svc := services.NewCountryService(pgDB, strapi.NewClient(cfg))
		res, err := svc.SyncCountries(ctx)
		if err != nil {
			log.Fatalf("country sync failed: %v", err)
		}
		log.Printf("✅ Countries: %d in cms, %d existing, %d created", res.CMS, res.Existing, res.Created)
		for _, name := range res.Drift {
			log.Printf("   drifted: %s (no longer in the CMS, kept locally)", name)
		}
	}

	if *materials != "" {
		imp := importer.NewMaterialImporter(pgDB)
		res, err := imp.ImportMaterials(ctx, *materials)
		if err != nil {
			log.Fatalf("material import failed: %v", err)
		}
		log.Printf("✅ Materials: %d rows, %d materials, %d applications, %d industries, %d countries, %d links, %d skipped",
			res.Rows, res.Materials, res.Applications, res.Industries, res.Countries, res.Links, res.Skipped)
	}

	if *logistics != "" {
		imp := importer.NewLogisticsImporter(pgDB)
		res, err := imp.ImportLogistics(ctx, *logistics)
		if err != nil {
			log.Fatalf("logistics import failed: %v", err)
		}
		log.Printf("✅ Logistics: %d choke points, %d cargo types, %d routes, %d ports, %d links, %d rows skipped, %d refs skipped",
			res.ChokePoints, res.CargoTypes, res.Routes, res.Ports, res.Links, res.SkippedRows, res.SkippedRefs)
	}
}
