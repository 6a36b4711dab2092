/**
 * @description
 * Logistics database models: maritime choke points, cargo types, trade routes
 * and country ports, plus their junction tables.
 * Rows are owned by the logistics importer; the API only reads them.
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

// ChokePoint represents a maritime bottleneck (e.g. "Strait of Hormuz")
type ChokePoint struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Slug      string    `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Latitude  float64   `gorm:"column:latitude" json:"latitude"`
	Longitude float64   `gorm:"column:longitude" json:"longitude"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ChokePoint) TableName() string {
	return "choke_points"
}

func (c *ChokePoint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// CargoType represents a cargo category moving through routes and choke points
type CargoType struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CargoType) TableName() string {
	return "cargo_types"
}

func (c *CargoType) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Route represents a named trade route
type Route struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Slug      string    `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Route) TableName() string {
	return "routes"
}

func (r *Route) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// CountryPort represents a port belonging to a country
type CountryPort struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CountryID uuid.UUID `gorm:"column:country_id;type:uuid;not null;index" json:"country_id"`
	Latitude  float64   `gorm:"column:latitude" json:"latitude"`
	Longitude float64   `gorm:"column:longitude" json:"longitude"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Associations
	Country Country `gorm:"foreignKey:CountryID" json:"-"`
}

func (CountryPort) TableName() string {
	return "country_ports"
}

func (p *CountryPort) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// ChokePointCargoType links a choke point to a cargo type passing through it
type ChokePointCargoType struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChokePointID uuid.UUID `gorm:"column:choke_point_id;type:uuid;not null;uniqueIndex:idx_cpct_pair" json:"choke_point_id"`
	CargoTypeID  uuid.UUID `gorm:"column:cargo_type_id;type:uuid;not null;uniqueIndex:idx_cpct_pair" json:"cargo_type_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ChokePointCargoType) TableName() string {
	return "choke_points_cargo_types"
}

func (j *ChokePointCargoType) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// ChokePointRawMaterial links a choke point to a raw material transiting it
type ChokePointRawMaterial struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChokePointID  uuid.UUID `gorm:"column:choke_point_id;type:uuid;not null;uniqueIndex:idx_cprm_pair" json:"choke_point_id"`
	RawMaterialID uuid.UUID `gorm:"column:raw_material_id;type:uuid;not null;uniqueIndex:idx_cprm_pair" json:"raw_material_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ChokePointRawMaterial) TableName() string {
	return "choke_points_raw_materials"
}

func (j *ChokePointRawMaterial) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// RouteChokePoint links a route to a choke point it passes
type RouteChokePoint struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID      uuid.UUID `gorm:"column:route_id;type:uuid;not null;uniqueIndex:idx_rcp_pair" json:"route_id"`
	ChokePointID uuid.UUID `gorm:"column:choke_point_id;type:uuid;not null;uniqueIndex:idx_rcp_pair" json:"choke_point_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RouteChokePoint) TableName() string {
	return "routes_choke_points"
}

func (j *RouteChokePoint) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// RouteCargoType links a route to a cargo type carried on it
type RouteCargoType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID     uuid.UUID `gorm:"column:route_id;type:uuid;not null;uniqueIndex:idx_rct_pair" json:"route_id"`
	CargoTypeID uuid.UUID `gorm:"column:cargo_type_id;type:uuid;not null;uniqueIndex:idx_rct_pair" json:"cargo_type_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RouteCargoType) TableName() string {
	return "routes_cargo_types"
}

func (j *RouteCargoType) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// CountryPortRoute links a port to a route calling at it
type CountryPortRoute struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CountryPortID uuid.UUID `gorm:"column:country_port_id;type:uuid;not null;uniqueIndex:idx_cpr_pair" json:"country_port_id"`
	RouteID       uuid.UUID `gorm:"column:route_id;type:uuid;not null;uniqueIndex:idx_cpr_pair" json:"route_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CountryPortRoute) TableName() string {
	return "country_ports_routes"
}

func (j *CountryPortRoute) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}
