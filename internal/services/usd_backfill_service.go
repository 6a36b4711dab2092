/**
 * @description
 * Service layer for backfilling the price_in_usd column on historical rows.
 * Rows written before USD normalization existed carry a NULL usd price; this
 * recomputes it from the stored quote using the same conversion the sync
 * pipeline applies (reciprocal for inverse-quoted sources, identity for
 * direct USD quotes). Rows in other currencies are left for a future FX pass.
 *
 * @dependencies
 * - backend/internal/pricefeed (quote orientation, reciprocal guard)
 * - gorm.io/gorm
 */

package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/store"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const backfillBatchSize = 500

type BackfillService struct {
	DB        *gorm.DB
	Materials *store.MaterialStore
}

func NewBackfillService(db *gorm.DB) *BackfillService {
	return &BackfillService{
		DB:        db,
		Materials: store.NewMaterialStore(db),
	}
}

// BackfillResult summarizes one backfill pass.
type BackfillResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"` // zero quotes and non-USD currencies
}

// BackfillUSD recomputes price_in_usd for rows where it is NULL. An empty
// sourceName processes every source.
func (s *BackfillService) BackfillUSD(ctx context.Context, sourceName string) (*BackfillResult, error) {
	var sources []models.ApiSource
	if err := s.DB.WithContext(ctx).Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	nameByID := make(map[uuid.UUID]string, len(sources))
	for _, src := range sources {
		nameByID[src.ID] = src.Name
	}

	query := s.DB.WithContext(ctx).Where("price_in_usd IS NULL")
	if sourceName != "" {
		source, err := s.Materials.SourceByName(ctx, sourceName)
		if err != nil {
			return nil, fmt.Errorf("unknown source %q: %w", sourceName, err)
		}
		query = query.Where("api_source_id = ?", source.ID)
	}

	result := &BackfillResult{}

	var rows []models.RawMaterialPrice
	err := query.FindInBatches(&rows, backfillBatchSize, func(_ *gorm.DB, _ int) error {
		for i := range rows {
			row := &rows[i]
			result.Scanned++

			var usd decimal.NullDecimal
			if pricefeed.QuotesInverse(nameByID[row.APISourceID]) {
				usd = pricefeed.InvertRate(row.Price)
			} else if strings.EqualFold(row.Currency, "USD") {
				usd = decimal.NullDecimal{Decimal: row.Price, Valid: true}
			}

			if !usd.Valid {
				result.Skipped++
				continue
			}

			if err := s.DB.WithContext(ctx).Model(row).Update("price_in_usd", usd).Error; err != nil {
				log.Printf("Failed to backfill price %s: %v", row.ID, err)
				result.Skipped++
				continue
			}
			result.Updated++
		}
		return nil
	}).Error
	if err != nil {
		return nil, fmt.Errorf("backfill scan failed: %w", err)
	}

	log.Printf("USD backfill: %d scanned, %d updated, %d skipped", result.Scanned, result.Updated, result.Skipped)
	return result, nil
}
