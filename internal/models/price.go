/**
 * @description
 * Raw material price database model.
 * Maps to the 'raw_material_prices' table in PostgreSQL.
 * One logical row per (material, source, date); the price sync pipeline is
 * the only writer and upserts against the composite unique index.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 * - github.com/shopspring/decimal
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RawMaterialPrice represents one daily price observation for a material
// as reported by one upstream source.
type RawMaterialPrice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RawMaterialID uuid.UUID `gorm:"column:raw_material_id;type:uuid;not null;uniqueIndex:idx_prices_material_source_date" json:"raw_material_id"`
	APISourceID   uuid.UUID `gorm:"column:api_source_id;type:uuid;not null;uniqueIndex:idx_prices_material_source_date" json:"api_source_id"`
	RecordedAt    time.Time `gorm:"column:recorded_at;not null;uniqueIndex:idx_prices_material_source_date" json:"recorded_at"`

	Price    decimal.Decimal     `gorm:"column:price;type:decimal(24,10)" json:"price"`
	Currency string              `gorm:"column:currency;type:varchar(8)" json:"currency"`
	Unit     string              `gorm:"column:unit" json:"unit"` // upstream measure note, e.g. "per ounce", "USD/t"
	PriceUSD decimal.NullDecimal `gorm:"column:price_in_usd;type:decimal(24,10)" json:"price_in_usd"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Associations
	RawMaterial RawMaterial `gorm:"foreignKey:RawMaterialID" json:"-"`
}

// TableName overrides the table name used by RawMaterialPrice to `raw_material_prices`
func (RawMaterialPrice) TableName() string {
	return "raw_material_prices"
}

// BeforeCreate ensures UUID is generated if not present
func (p *RawMaterialPrice) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
