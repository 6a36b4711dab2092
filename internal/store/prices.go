/**
 * @description
 * Price store: the upsert writer of the sync pipeline and the read side of
 * the price history API. One logical row per (material, source, date) is
 * enforced by the composite unique index; each upsert is a single-statement
 * insert-on-conflict-update in its own transaction, so interrupted runs
 * leave committed rows intact.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgx/v5/pgconn
 * - backend/internal/models
 * - backend/internal/pricefeed
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

// WriteResult reports what one batch write did.
type WriteResult struct {
	Inserted    int
	Updated     int
	Skipped     int
	SkipReasons []string
}

type PriceStore struct {
	db *gorm.DB
}

func NewPriceStore(db *gorm.DB) *PriceStore {
	return &PriceStore{db: db}
}

// SavePrices validates one normalized batch and upserts the valid rows.
// Invalid rows are counted and skipped; they never block the rest of the
// batch. The insert/update split is classified against the dates already
// present for the batch window.
func (s *PriceStore) SavePrices(ctx context.Context, materialID, sourceID uuid.UUID, points []pricefeed.PricePoint) (WriteResult, error) {
	var res WriteResult

	valid := make([]pricefeed.PricePoint, 0, len(points))
	for _, p := range points {
		if err := p.Validate(); err != nil {
			res.Skipped++
			res.SkipReasons = append(res.SkipReasons, fmt.Sprintf("%s: %v", p.Date.Format(dateLayout), err))
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return res, nil
	}

	existing, err := s.existingDates(ctx, materialID, sourceID, valid)
	if err != nil {
		return res, fmt.Errorf("read existing dates: %w", err)
	}

	for _, p := range valid {
		row := models.RawMaterialPrice{
			RawMaterialID: materialID,
			APISourceID:   sourceID,
			RecordedAt:    p.Date,
			Price:         p.Price,
			Currency:      p.Currency,
			Unit:          p.Unit,
			PriceUSD:      p.PriceUSD,
		}
		if err := s.upsert(ctx, &row); err != nil {
			return res, fmt.Errorf("upsert %s: %w", p.Date.Format(dateLayout), err)
		}
		if existing[p.Date.Format(dateLayout)] {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	return res, nil
}

func (s *PriceStore) upsert(ctx context.Context, row *models.RawMaterialPrice) error {
	const maxAttempts = 3

	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "raw_material_id"},
				{Name: "api_source_id"},
				{Name: "recorded_at"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"price", "currency", "unit", "price_in_usd", "updated_at"}),
		}).Create(row).Error
		if err == nil {
			return nil
		}
		if !isRetryableDBError(err) || attempt >= maxAttempts {
			return err
		}
		// Deadlock or serialization conflict; back off with jitter and retry
		time.Sleep(time.Duration(100*attempt+rand.Intn(150)) * time.Millisecond)
	}
}

// isRetryableDBError matches Postgres deadlock (40P01) and serialization
// failure (40001) codes.
func isRetryableDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40P01" || pgErr.Code == "40001"
	}
	return false
}

// existingDates returns the set of recorded dates already present for the
// window spanned by the batch, keyed by date string.
func (s *PriceStore) existingDates(ctx context.Context, materialID, sourceID uuid.UUID, points []pricefeed.PricePoint) (map[string]bool, error) {
	min, max := points[0].Date, points[0].Date
	for _, p := range points[1:] {
		if p.Date.Before(min) {
			min = p.Date
		}
		if p.Date.After(max) {
			max = p.Date
		}
	}

	var dates []time.Time
	err := s.db.WithContext(ctx).
		Model(&models.RawMaterialPrice{}).
		Where("raw_material_id = ? AND api_source_id = ? AND recorded_at BETWEEN ? AND ?", materialID, sourceID, min, max).
		Pluck("recorded_at", &dates).Error
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(dates))
	for _, d := range dates {
		existing[pricefeed.DateOf(d).Format(dateLayout)] = true
	}
	return existing, nil
}

// ListPrices returns the price history of one material within [from, to],
// chronological. A zero from/to leaves that bound open.
func (s *PriceStore) ListPrices(ctx context.Context, materialID uuid.UUID, from, to time.Time, limit int) ([]models.RawMaterialPrice, error) {
	query := s.db.WithContext(ctx).
		Where("raw_material_id = ?", materialID).
		Order("recorded_at asc")
	if !from.IsZero() {
		query = query.Where("recorded_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("recorded_at <= ?", to)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var prices []models.RawMaterialPrice
	if err := query.Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}
