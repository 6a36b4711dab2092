/**
 * @description
 * Service layer for reconciling the countries table against the CMS.
 * Countries present in the CMS but missing locally are created; local rows
 * absent from the CMS are reported as drift but never deleted, since producer
 * links may still reference them.
 *
 * @dependencies
 * - backend/internal/integrations/strapi
 * - gorm.io/gorm
 */

package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/materia-project/backend/internal/integrations/strapi"
	"github.com/materia-project/backend/internal/models"
	"gorm.io/gorm"
)

type CountryService struct {
	DB     *gorm.DB
	Strapi *strapi.Client
}

func NewCountryService(db *gorm.DB, client *strapi.Client) *CountryService {
	return &CountryService{DB: db, Strapi: client}
}

// CountrySyncResult summarizes one reconciliation pass.
type CountrySyncResult struct {
	CMS      int      `json:"cms"`
	Existing int      `json:"existing"`
	Created  int      `json:"created"`
	Drift    []string `json:"drift,omitempty"` // local countries the CMS no longer lists
}

// SyncCountries pulls the CMS country list and inserts any missing rows.
func (s *CountryService) SyncCountries(ctx context.Context) (*CountrySyncResult, error) {
	names, err := s.Strapi.Countries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch countries from cms: %w", err)
	}

	var existing []models.Country
	if err := s.DB.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load countries: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[strings.ToLower(c.Name)] = true
	}

	result := &CountrySyncResult{CMS: len(names), Existing: len(existing)}

	inCMS := make(map[string]bool, len(names))
	for _, name := range names {
		inCMS[strings.ToLower(name)] = true
		if known[strings.ToLower(name)] {
			continue
		}

		if err := s.DB.WithContext(ctx).Create(&models.Country{Name: name}).Error; err != nil {
			log.Printf("Failed to create country %q: %v", name, err)
			continue
		}
		known[strings.ToLower(name)] = true
		result.Created++
	}

	for _, c := range existing {
		if !inCMS[strings.ToLower(c.Name)] {
			result.Drift = append(result.Drift, c.Name)
		}
	}
	sort.Strings(result.Drift)

	log.Printf("Country sync: %d in cms, %d existing, %d created, %d drifted",
		result.CMS, result.Existing, result.Created, len(result.Drift))

	return result, nil
}
