/**
 * @description
 * Material store: api_sources reference data and the per-source symbol
 * resolution the sync pipeline runs on.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 * - backend/internal/pricefeed
 */

package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"gorm.io/gorm"
)

// ErrEmptySourceSet is returned when a source has no materials mapped to it.
// Callers treat it as "no work", not as a failure.
var ErrEmptySourceSet = errors.New("no materials mapped to source")

// MaterialSymbol pairs a material with the identifier used to query its source.
type MaterialSymbol struct {
	MaterialID uuid.UUID
	Name       string
	Symbol     string
}

type MaterialStore struct {
	db *gorm.DB
}

func NewMaterialStore(db *gorm.DB) *MaterialStore {
	return &MaterialStore{db: db}
}

// EnsureSource returns the api_sources row for name, creating it when absent.
func (s *MaterialStore) EnsureSource(ctx context.Context, name, url string) (*models.ApiSource, error) {
	var source models.ApiSource
	err := s.db.WithContext(ctx).
		Where(models.ApiSource{Name: name}).
		Attrs(models.ApiSource{URL: url}).
		FirstOrCreate(&source).Error
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// SourceByName fetches one api_sources row.
func (s *MaterialStore) SourceByName(ctx context.Context, name string) (*models.ApiSource, error) {
	var source models.ApiSource
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&source).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

// ResolveSymbols returns the (material, symbol) pairs mapped to a source.
// Metals and Commodities materials are addressed by their symbol column;
// Commoditic is addressed by the lowercased material name. Materials without
// a usable identifier are left out. ErrEmptySourceSet when nothing remains.
func (s *MaterialStore) ResolveSymbols(ctx context.Context, source *models.ApiSource) ([]MaterialSymbol, error) {
	var materials []models.RawMaterial
	err := s.db.WithContext(ctx).
		Where("api_source = ?", source.ID).
		Order("raw_material_name asc").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]MaterialSymbol, 0, len(materials))
	for _, m := range materials {
		symbol := m.Symbol
		if source.Name == pricefeed.SourceCommoditic {
			symbol = strings.ToLower(m.Name)
		}
		if symbol == "" {
			continue
		}
		pairs = append(pairs, MaterialSymbol{MaterialID: m.ID, Name: m.Name, Symbol: symbol})
	}

	if len(pairs) == 0 {
		return nil, ErrEmptySourceSet
	}
	return pairs, nil
}

// ListMaterials returns materials for the admin API, optionally filtered by
// source name, with the total row count for pagination.
func (s *MaterialStore) ListMaterials(ctx context.Context, sourceName string, limit, offset int) ([]models.RawMaterial, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.RawMaterial{})
	if sourceName != "" {
		query = query.Joins("JOIN api_sources ON api_sources.id = raw_materials.api_source").
			Where("api_sources.name = ?", sourceName)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var materials []models.RawMaterial
	err := query.Preload("Source").
		Order("raw_material_name asc").
		Limit(limit).
		Offset(offset).
		Find(&materials).Error
	if err != nil {
		return nil, 0, err
	}
	return materials, total, nil
}

// GetMaterial fetches one material by id.
func (s *MaterialStore) GetMaterial(ctx context.Context, id uuid.UUID) (*models.RawMaterial, error) {
	var material models.RawMaterial
	if err := s.db.WithContext(ctx).Preload("Source").First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

// MaterialUsage pairs a dimension name with the share recorded for the
// material. Shares are kept verbatim from the source sheet.
type MaterialUsage struct {
	Name       string `json:"name"`
	Percentage string `json:"percentage,omitempty"`
}

// MaterialProducer is one producing country and its production share.
type MaterialProducer struct {
	Country         string `json:"country"`
	ProductionShare string `json:"production_share,omitempty"`
}

// MaterialProfile aggregates the detail view of one material.
type MaterialProfile struct {
	Material     *models.RawMaterial `json:"material"`
	Applications []MaterialUsage     `json:"applications"`
	Industries   []MaterialUsage     `json:"industries"`
}

// GetProfile fetches one material together with its applications and
// industries.
func (s *MaterialStore) GetProfile(ctx context.Context, id uuid.UUID) (*MaterialProfile, error) {
	material, err := s.GetMaterial(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &MaterialProfile{
		Material:     material,
		Applications: []MaterialUsage{},
		Industries:   []MaterialUsage{},
	}

	err = s.db.WithContext(ctx).
		Table("raw_materials_applications").
		Select("applications.name AS name, raw_materials_applications.percentage AS percentage").
		Joins("JOIN applications ON applications.id = raw_materials_applications.application_id").
		Where("raw_materials_applications.raw_material_id = ?", id).
		Order("applications.name asc").
		Scan(&profile.Applications).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Table("raw_materials_industries").
		Select("industries.name AS name").
		Joins("JOIN industries ON industries.id = raw_materials_industries.industry_id").
		Where("raw_materials_industries.raw_material_id = ?", id).
		Order("industries.name asc").
		Scan(&profile.Industries).Error
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// Producers returns the producing countries of a material with their shares.
func (s *MaterialStore) Producers(ctx context.Context, id uuid.UUID) ([]MaterialProducer, error) {
	producers := []MaterialProducer{}
	err := s.db.WithContext(ctx).
		Table("countries_raw_materials").
		Select("countries.name AS country, countries_raw_materials.production_share AS production_share").
		Joins("JOIN countries ON countries.id = countries_raw_materials.country_id").
		Where("countries_raw_materials.raw_material_id = ?", id).
		Order("countries.name asc").
		Scan(&producers).Error
	if err != nil {
		return nil, err
	}
	return producers, nil
}
