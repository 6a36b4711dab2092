/**
 * @description
 * Run store: persistence of sync run summaries for auditing and the
 * admin API.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/materia-project/backend/internal/models"
	"gorm.io/gorm"
)

type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// Create persists a freshly started run.
func (s *RunStore) Create(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

// Update persists the current state of a run.
func (s *RunStore) Update(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

// Get fetches one run by id.
func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns recent runs, newest first, optionally filtered by source.
func (s *RunStore) List(ctx context.Context, source string, limit, offset int) ([]models.SyncRun, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.SyncRun{})
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []models.SyncRun
	err := query.Order("started_at desc").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
