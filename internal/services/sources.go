package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/pricefeed/commoditic"
	"github.com/materia-project/backend/internal/pricefeed/commoditiesapi"
	"github.com/materia-project/backend/internal/pricefeed/metalsapi"
	"github.com/materia-project/backend/internal/store"
)

// DefaultSources builds the adapter registry for every upstream the
// configuration carries credentials for. Sources without a key are left out
// so a partially configured deployment syncs what it can.
func DefaultSources(cfg *config.Config) map[string]pricefeed.Source {
	sources := make(map[string]pricefeed.Source)

	if cfg.Sources.MetalsKey != "" {
		client := metalsapi.NewClient(cfg)
		sources[client.Name()] = client
	}
	if cfg.Sources.CommoditiesKey != "" {
		client := commoditiesapi.NewClient(cfg)
		sources[client.Name()] = client
	}
	if cfg.Sources.CommoditicKey != "" {
		client := commoditic.NewClient(cfg)
		sources[client.Name()] = client
	}

	return sources
}

// EnsureSourceRows seeds the api_sources table for every known upstream,
// so price rows always have a source row to reference. Safe to call from
// every binary on startup.
func EnsureSourceRows(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	entries := []struct {
		name string
		url  string
	}{
		{pricefeed.SourceMetals, cfg.Sources.MetalsURL},
		{pricefeed.SourceCommodities, cfg.Sources.CommoditiesURL},
		{pricefeed.SourceCommoditic, cfg.Sources.CommoditicURL},
	}

	materials := store.NewMaterialStore(db)
	for _, e := range entries {
		if _, err := materials.EnsureSource(ctx, e.name, e.url); err != nil {
			return fmt.Errorf("failed to seed source %q: %w", e.name, err)
		}
	}
	return nil
}
