/**
 * @description
 * Raw-material sheet importer. Loads the curated material sheet and upserts
 * materials, applications, industries and producing countries plus the
 * junction rows linking them. Multi-value cells are "/"-separated with
 * percentage cells aligned positionally; percentage and production-share
 * values are stored verbatim as strings because the sheets mix formats
 * ("35%", "approx. 40", "n/a").
 *
 * Existing rows are never modified: every insert is preceded by a lookup on
 * the natural key, so re-running the importer against the same sheet is a
 * no-op.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/gosimple/slug for material slugs
 */

package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/materia-project/backend/internal/models"
)

// MaterialImporter loads the raw-material sheet into the taxonomy tables.
type MaterialImporter struct {
	DB *gorm.DB
}

func NewMaterialImporter(db *gorm.DB) *MaterialImporter {
	return &MaterialImporter{DB: db}
}

// MaterialImportResult reports created rows per entity. Links counts
// junction rows across all three junction tables; Skipped counts data rows
// dropped for a missing material name.
type MaterialImportResult struct {
	Rows         int `json:"rows"`
	Materials    int `json:"materials"`
	Applications int `json:"applications"`
	Industries   int `json:"industries"`
	Countries    int `json:"countries"`
	Links        int `json:"links"`
	Skipped      int `json:"skipped"`
}

// ImportMaterials reads the sheet at path and loads it. Structural problems
// (unreadable file, missing material column) fail the run; per-row problems
// are counted and skipped.
//
// Recognized columns: material, symbol, applications,
// application_percentages, industry, countries, production_percentages.
func (imp *MaterialImporter) ImportMaterials(ctx context.Context, path string) (*MaterialImportResult, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.Require("material"); err != nil {
		return nil, err
	}

	result := &MaterialImportResult{}

	for _, row := range table.Rows {
		result.Rows++

		name := titleCase(row["material"])
		if name == "" {
			log.Printf("Skipping material row with empty name")
			result.Skipped++
			continue
		}

		materialID, created, err := imp.ensureMaterial(ctx, name, row["symbol"])
		if err != nil {
			return nil, err
		}
		if created {
			result.Materials++
		}

		for _, entry := range splitPaired(row["applications"], row["application_percentages"]) {
			appID, created, err := imp.ensureApplication(ctx, titleCase(entry.Name))
			if err != nil {
				return nil, err
			}
			if created {
				result.Applications++
			}
			linked, err := imp.linkApplication(ctx, materialID, appID, entry.Value)
			if err != nil {
				return nil, err
			}
			if linked {
				result.Links++
			}
		}

		for _, industryName := range splitList(row["industry"]) {
			industryID, created, err := imp.ensureIndustry(ctx, titleCase(industryName))
			if err != nil {
				return nil, err
			}
			if created {
				result.Industries++
			}
			linked, err := imp.linkIndustry(ctx, materialID, industryID)
			if err != nil {
				return nil, err
			}
			if linked {
				result.Links++
			}
		}

		for _, entry := range splitPaired(row["countries"], row["production_percentages"]) {
			countryID, created, err := imp.ensureCountry(ctx, titleCase(entry.Name))
			if err != nil {
				return nil, err
			}
			if created {
				result.Countries++
			}
			linked, err := imp.linkCountry(ctx, materialID, countryID, entry.Value)
			if err != nil {
				return nil, err
			}
			if linked {
				result.Links++
			}
		}
	}

	log.Printf("Material import: %d rows, %d materials, %d applications, %d industries, %d countries, %d links, %d skipped",
		result.Rows, result.Materials, result.Applications, result.Industries, result.Countries, result.Links, result.Skipped)

	return result, nil
}

// ensureMaterial returns the id of the material with the given name,
// creating it when missing. The slug is the natural key; an existing row is
// left untouched, so a symbol already backfilled by the directory refresh
// survives re-imports.
func (imp *MaterialImporter) ensureMaterial(ctx context.Context, name, symbol string) (uuid.UUID, bool, error) {
	materialSlug := slug.Make(name)

	var material models.RawMaterial
	err := imp.DB.WithContext(ctx).Where("slug = ?", materialSlug).First(&material).Error
	if err == nil {
		return material.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up material %q: %w", name, err)
	}

	material = models.RawMaterial{Name: name, Slug: materialSlug, Symbol: symbol}
	if err := imp.DB.WithContext(ctx).Create(&material).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create material %q: %w", name, err)
	}
	return material.ID, true, nil
}

func (imp *MaterialImporter) ensureApplication(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var app models.Application
	err := imp.DB.WithContext(ctx).Where("name = ?", name).First(&app).Error
	if err == nil {
		return app.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up application %q: %w", name, err)
	}

	app = models.Application{Name: name}
	if err := imp.DB.WithContext(ctx).Create(&app).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create application %q: %w", name, err)
	}
	return app.ID, true, nil
}

func (imp *MaterialImporter) ensureIndustry(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var industry models.Industry
	err := imp.DB.WithContext(ctx).Where("name = ?", name).First(&industry).Error
	if err == nil {
		return industry.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up industry %q: %w", name, err)
	}

	industry = models.Industry{Name: name}
	if err := imp.DB.WithContext(ctx).Create(&industry).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create industry %q: %w", name, err)
	}
	return industry.ID, true, nil
}

func (imp *MaterialImporter) ensureCountry(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var country models.Country
	err := imp.DB.WithContext(ctx).Where("name = ?", name).First(&country).Error
	if err == nil {
		return country.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up country %q: %w", name, err)
	}

	country = models.Country{Name: name}
	if err := imp.DB.WithContext(ctx).Create(&country).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create country %q: %w", name, err)
	}
	return country.ID, true, nil
}

func (imp *MaterialImporter) linkApplication(ctx context.Context, materialID, applicationID uuid.UUID, percentage string) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.RawMaterialApplication{}).
		Where("raw_material_id = ? AND application_id = ?", materialID, applicationID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up application link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.RawMaterialApplication{
		RawMaterialID: materialID,
		ApplicationID: applicationID,
		Percentage:    percentage,
	}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create application link: %w", err)
	}
	return true, nil
}

func (imp *MaterialImporter) linkIndustry(ctx context.Context, materialID, industryID uuid.UUID) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.RawMaterialIndustry{}).
		Where("raw_material_id = ? AND industry_id = ?", materialID, industryID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up industry link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.RawMaterialIndustry{RawMaterialID: materialID, IndustryID: industryID}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create industry link: %w", err)
	}
	return true, nil
}

func (imp *MaterialImporter) linkCountry(ctx context.Context, materialID, countryID uuid.UUID, share string) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.CountryRawMaterial{}).
		Where("country_id = ? AND raw_material_id = ?", countryID, materialID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up country link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.CountryRawMaterial{
		CountryID:       countryID,
		RawMaterialID:   materialID,
		ProductionShare: share,
	}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create country link: %w", err)
	}
	return true, nil
}

// splitList splits a "/"-separated cell, trimming parts and dropping empty
// or placeholder ("-") entries.
func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(cell, "/") {
		part = strings.TrimSpace(part)
		if part == "" || part == "-" {
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

// listEntry is one position of a "/"-separated name cell paired with the
// same position of its percentage cell.
type listEntry struct {
	Name  string
	Value string
}

// splitPaired splits two aligned "/"-separated cells positionally, dropping
// positions whose name is empty or a placeholder ("-"). Values beyond the
// end of the value cell read as "".
func splitPaired(names, values string) []listEntry {
	if strings.TrimSpace(names) == "" {
		return nil
	}
	nameParts := strings.Split(names, "/")
	valueParts := strings.Split(values, "/")

	entries := make([]listEntry, 0, len(nameParts))
	for i, raw := range nameParts {
		name := strings.TrimSpace(raw)
		if name == "" || name == "-" {
			continue
		}
		value := ""
		if i < len(valueParts) {
			value = strings.TrimSpace(valueParts[i])
		}
		entries = append(entries, listEntry{Name: name, Value: value})
	}
	return entries
}

// titleCase upper-cases the first letter of every word, leaving interior
// capitalization alone so acronyms like "DRC" survive.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
