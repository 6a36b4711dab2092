/**
 * @description
 * Service layer for symbol mapping maintenance.
 * Pulls the Commodities API symbol directory and assigns tickers to raw
 * materials that have no source mapping yet, matched by display name. Runs
 * weekly from the worker and on demand from the admin API.
 *
 * @dependencies
 * - backend/internal/pricefeed/commoditiesapi
 * - backend/internal/store
 * - gorm.io/gorm
 */

package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/pricefeed/commoditiesapi"
	"github.com/materia-project/backend/internal/store"
	"gorm.io/gorm"
)

type SymbolService struct {
	DB        *gorm.DB
	Client    *commoditiesapi.Client
	Materials *store.MaterialStore
}

func NewSymbolService(db *gorm.DB, client *commoditiesapi.Client) *SymbolService {
	return &SymbolService{
		DB:        db,
		Client:    client,
		Materials: store.NewMaterialStore(db),
	}
}

// SymbolRefreshResult summarizes one directory pass.
type SymbolRefreshResult struct {
	Directory int `json:"directory"` // entries in the upstream directory
	Scanned   int `json:"scanned"`   // materials without a mapping
	Matched   int `json:"matched"`
	Updated   int `json:"updated"`
}

// RefreshSymbols maps unmapped raw materials to Commodities API tickers by
// case-insensitive name match against the symbol directory. Materials already
// mapped to a source are never touched.
func (s *SymbolService) RefreshSymbols(ctx context.Context) (*SymbolRefreshResult, error) {
	directory, err := s.Client.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch symbol directory: %w", err)
	}

	byName := make(map[string]string, len(directory))
	for symbol, name := range directory {
		if symbol == "" || name == "" {
			continue
		}
		byName[strings.ToLower(strings.TrimSpace(name))] = symbol
	}

	source, err := s.Materials.EnsureSource(ctx, pricefeed.SourceCommodities, s.Client.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure source record: %w", err)
	}

	// Materials mapped to any source stay untouched, including Commoditic
	// materials whose symbol is legitimately empty.
	var unmapped []models.RawMaterial
	if err := s.DB.WithContext(ctx).
		Where("api_source IS NULL").
		Find(&unmapped).Error; err != nil {
		return nil, fmt.Errorf("failed to load unmapped materials: %w", err)
	}

	result := &SymbolRefreshResult{Directory: len(directory), Scanned: len(unmapped)}

	for i := range unmapped {
		material := &unmapped[i]

		symbol, ok := byName[strings.ToLower(strings.TrimSpace(material.Name))]
		if !ok {
			continue
		}
		result.Matched++

		err := s.DB.WithContext(ctx).Model(material).Updates(map[string]interface{}{
			"symbol":     symbol,
			"api_source": source.ID,
		}).Error
		if err != nil {
			log.Printf("Failed to map %s to symbol %s: %v", material.Name, symbol, err)
			continue
		}
		result.Updated++
	}

	log.Printf("Symbol refresh: %d directory entries, %d unmapped scanned, %d matched, %d updated",
		result.Directory, result.Scanned, result.Matched, result.Updated)

	return result, nil
}
