/**
 * @description
 * Taxonomy database models: applications, industries and countries, plus the
 * junction tables linking them to raw materials.
 * Rows are owned by the importer; the API only reads them.
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

// Application represents an end use of a raw material (e.g. "Batteries")
type Application struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Application) TableName() string {
	return "applications"
}

func (a *Application) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// Industry represents an industry consuming a raw material
type Industry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Industry) TableName() string {
	return "industries"
}

func (i *Industry) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// Country represents a producing or hosting country
type Country struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Country) TableName() string {
	return "countries"
}

func (c *Country) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// RawMaterialApplication links a material to one of its applications.
// Percentage is kept verbatim from the source sheet (e.g. "35%").
type RawMaterialApplication struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RawMaterialID uuid.UUID `gorm:"column:raw_material_id;type:uuid;not null;uniqueIndex:idx_rma_pair" json:"raw_material_id"`
	ApplicationID uuid.UUID `gorm:"column:application_id;type:uuid;not null;uniqueIndex:idx_rma_pair" json:"application_id"`
	Percentage    string    `gorm:"column:percentage" json:"percentage"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RawMaterialApplication) TableName() string {
	return "raw_materials_applications"
}

func (j *RawMaterialApplication) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// RawMaterialIndustry links a material to an industry
type RawMaterialIndustry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RawMaterialID uuid.UUID `gorm:"column:raw_material_id;type:uuid;not null;uniqueIndex:idx_rmi_pair" json:"raw_material_id"`
	IndustryID    uuid.UUID `gorm:"column:industry_id;type:uuid;not null;uniqueIndex:idx_rmi_pair" json:"industry_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RawMaterialIndustry) TableName() string {
	return "raw_materials_industries"
}

func (j *RawMaterialIndustry) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// CountryRawMaterial links a producing country to a material.
// ProductionShare is kept verbatim from the source sheet.
type CountryRawMaterial struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CountryID       uuid.UUID `gorm:"column:country_id;type:uuid;not null;uniqueIndex:idx_crm_pair" json:"country_id"`
	RawMaterialID   uuid.UUID `gorm:"column:raw_material_id;type:uuid;not null;uniqueIndex:idx_crm_pair" json:"raw_material_id"`
	ProductionShare string    `gorm:"column:production_share" json:"production_share"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Associations
	Country Country `gorm:"foreignKey:CountryID" json:"-"`
}

func (CountryRawMaterial) TableName() string {
	return "countries_raw_materials"
}

func (j *CountryRawMaterial) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}
