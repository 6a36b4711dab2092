/**
 * @description
 * Raw material and API source database models.
 * Map to the 'raw_materials' and 'api_sources' tables in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiSource identifies one upstream price API. Rows are seeded from
// configuration at startup and are static reference data afterwards.
type ApiSource struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	URL  string    `gorm:"column:url" json:"url"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by ApiSource to `api_sources`
func (ApiSource) TableName() string {
	return "api_sources"
}

// BeforeCreate ensures UUID is generated if not present
func (s *ApiSource) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// RawMaterial represents one tracked commodity. Created by the importer;
// the price pipeline only reads these rows.
type RawMaterial struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"column:raw_material_name;not null" json:"name"`
	Slug        string     `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Symbol      string     `gorm:"column:symbol" json:"symbol"` // upstream ticker, e.g. "XAU"
	APISourceID *uuid.UUID `gorm:"column:api_source;type:uuid;index" json:"api_source"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Associations
	Source *ApiSource `gorm:"foreignKey:APISourceID" json:"-"`
}

// TableName overrides the table name used by RawMaterial to `raw_materials`
func (RawMaterial) TableName() string {
	return "raw_materials"
}

// BeforeCreate ensures UUID is generated if not present
func (m *RawMaterial) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
