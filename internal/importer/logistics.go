/**
 * @description
 * Logistics sheet importer. Loads the choke-point, route and port sheets
 * from a directory and populates the logistics tables plus their five
 * junction tables. Name references between sheets are resolved by lookup;
 * rows that reference unknown names are skipped and counted, never fatal.
 *
 * The sheets keep their upstream layout: one choke-point row per cargo
 * type, routes with chokepoint1..chokepoint10 columns and a comma-separated
 * ports column, ports with a country column resolved by exact name.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/gosimple/slug for choke point and route slugs
 */

package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/materia-project/backend/internal/models"
)

// Sheet base names looked up inside the import directory, in either .csv or
// .xlsx form.
const (
	chokePointsSheet = "cargo_type_choke_points"
	routesSheet      = "route_choke_points_data"
	portsSheet       = "ports_country"
)

// Routes carry up to this many chokepointN columns.
const routeChokePointColumns = 10

// LogisticsImporter loads the logistics sheets into the database.
type LogisticsImporter struct {
	DB *gorm.DB
}

func NewLogisticsImporter(db *gorm.DB) *LogisticsImporter {
	return &LogisticsImporter{DB: db}
}

// LogisticsImportResult reports created rows per entity. Links counts
// junction rows across all five junction tables. SkippedRows counts data
// rows dropped whole (missing name, unparseable coordinates, unknown
// country); SkippedRefs counts individual name references that resolved to
// nothing while the rest of the row was still processed.
type LogisticsImportResult struct {
	ChokePoints int `json:"choke_points"`
	CargoTypes  int `json:"cargo_types"`
	Routes      int `json:"routes"`
	Ports       int `json:"ports"`
	Links       int `json:"links"`
	SkippedRows int `json:"skipped_rows"`
	SkippedRefs int `json:"skipped_refs"`
}

// ImportLogistics loads the three sheets from dir. All sheets are read and
// validated before anything is written, so a missing file or renamed column
// fails the run with the database untouched.
func (imp *LogisticsImporter) ImportLogistics(ctx context.Context, dir string) (*LogisticsImportResult, error) {
	chokeTable, err := imp.loadSheet(dir, chokePointsSheet, "primary_chokepoints", "latitude", "longitude")
	if err != nil {
		return nil, err
	}
	routeTable, err := imp.loadSheet(dir, routesSheet, "route_name")
	if err != nil {
		return nil, err
	}
	portTable, err := imp.loadSheet(dir, portsSheet, "port_name", "country")
	if err != nil {
		return nil, err
	}

	result := &LogisticsImportResult{}

	if err := imp.importChokePoints(ctx, chokeTable, result); err != nil {
		return nil, err
	}
	if err := imp.importRoutes(ctx, routeTable, result); err != nil {
		return nil, err
	}
	if err := imp.importPorts(ctx, portTable, result); err != nil {
		return nil, err
	}
	// Ports must exist before the route sheet's ports column can be linked.
	if err := imp.linkRoutePorts(ctx, routeTable, result); err != nil {
		return nil, err
	}

	log.Printf("Logistics import: %d choke points, %d cargo types, %d routes, %d ports, %d links, %d rows skipped, %d refs skipped",
		result.ChokePoints, result.CargoTypes, result.Routes, result.Ports, result.Links, result.SkippedRows, result.SkippedRefs)

	return result, nil
}

func (imp *LogisticsImporter) loadSheet(dir, base string, required ...string) (*Table, error) {
	path, err := findTable(dir, base)
	if err != nil {
		return nil, err
	}
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.Require(required...); err != nil {
		return nil, err
	}
	return table, nil
}

// importChokePoints walks the choke-point sheet, which carries one row per
// choke point and cargo type pairing. Choke points are created once and the
// cargo types of later rows attach to the existing row.
func (imp *LogisticsImporter) importChokePoints(ctx context.Context, table *Table, result *LogisticsImportResult) error {
	hasMaterials := table.HasColumn("key_raw_materials")

	for _, row := range table.Rows {
		name := row["primary_chokepoints"]
		if name == "" {
			result.SkippedRows++
			continue
		}

		lat, lon, ok := parseCoordinates(row["latitude"], row["longitude"])
		if !ok {
			log.Printf("Skipping chokepoint %q: unparseable coordinates (%q, %q)",
				name, row["latitude"], row["longitude"])
			result.SkippedRows++
			continue
		}

		chokePointID, created, err := imp.ensureChokePoint(ctx, name, lat, lon)
		if err != nil {
			return err
		}
		if created {
			result.ChokePoints++
		}

		if cargoName := row["vessel_composition_cargo_type"]; cargoName != "" && cargoName != "-" {
			cargoTypeID, created, err := imp.ensureCargoType(ctx, cargoName)
			if err != nil {
				return err
			}
			if created {
				result.CargoTypes++
			}
			linked, err := imp.linkChokePointCargoType(ctx, chokePointID, cargoTypeID)
			if err != nil {
				return err
			}
			if linked {
				result.Links++
			}
		}

		if !hasMaterials {
			continue
		}
		for _, materialName := range splitList(row["key_raw_materials"]) {
			materialID, found, err := imp.findMaterial(ctx, materialName)
			if err != nil {
				return err
			}
			if !found {
				log.Printf("Material %q not found for chokepoint %q", materialName, name)
				result.SkippedRefs++
				continue
			}
			linked, err := imp.linkChokePointMaterial(ctx, chokePointID, materialID)
			if err != nil {
				return err
			}
			if linked {
				result.Links++
			}
		}
	}
	return nil
}

// importRoutes creates routes and links them to their choke points, then
// denormalizes the cargo types of those choke points onto the route so
// "which routes move LNG" is one join away.
func (imp *LogisticsImporter) importRoutes(ctx context.Context, table *Table, result *LogisticsImportResult) error {
	for _, row := range table.Rows {
		name := row["route_name"]
		if name == "" {
			result.SkippedRows++
			continue
		}

		routeID, created, err := imp.ensureRoute(ctx, name)
		if err != nil {
			return err
		}
		if created {
			result.Routes++
		}

		var chokePointIDs []uuid.UUID
		for i := 1; i <= routeChokePointColumns; i++ {
			cell := row[fmt.Sprintf("chokepoint%d", i)]
			if cell == "" || cell == "-" {
				continue
			}
			chokePointID, found, err := imp.findChokePoint(ctx, cell)
			if err != nil {
				return err
			}
			if !found {
				log.Printf("Chokepoint %q not found for route %q", cell, name)
				result.SkippedRefs++
				continue
			}
			linked, err := imp.linkRouteChokePoint(ctx, routeID, chokePointID)
			if err != nil {
				return err
			}
			if linked {
				result.Links++
			}
			chokePointIDs = append(chokePointIDs, chokePointID)
		}

		if err := imp.rollUpRouteCargoTypes(ctx, routeID, chokePointIDs, result); err != nil {
			return err
		}
	}
	return nil
}

func (imp *LogisticsImporter) rollUpRouteCargoTypes(ctx context.Context, routeID uuid.UUID, chokePointIDs []uuid.UUID, result *LogisticsImportResult) error {
	if len(chokePointIDs) == 0 {
		return nil
	}

	var cargoTypeIDs []uuid.UUID
	err := imp.DB.WithContext(ctx).Model(&models.ChokePointCargoType{}).
		Where("choke_point_id IN ?", chokePointIDs).
		Distinct().
		Pluck("cargo_type_id", &cargoTypeIDs).Error
	if err != nil {
		return fmt.Errorf("failed to collect route cargo types: %w", err)
	}

	for _, cargoTypeID := range cargoTypeIDs {
		linked, err := imp.linkRouteCargoType(ctx, routeID, cargoTypeID)
		if err != nil {
			return err
		}
		if linked {
			result.Links++
		}
	}
	return nil
}

func (imp *LogisticsImporter) importPorts(ctx context.Context, table *Table, result *LogisticsImportResult) error {
	for _, row := range table.Rows {
		name := row["port_name"]
		if name == "" {
			log.Printf("Skipping port row with empty name")
			result.SkippedRows++
			continue
		}

		countryID, found, err := imp.findCountry(ctx, row["country"])
		if err != nil {
			return err
		}
		if !found {
			log.Printf("Country %q not found, skipping port %q", row["country"], name)
			result.SkippedRows++
			continue
		}

		// Port coordinates are optional upstream, so blank cells pass
		// through as zero while garbage still drops the row.
		lat, lon := 0.0, 0.0
		if row["latitude"] != "" || row["longitude"] != "" {
			var ok bool
			lat, lon, ok = parseCoordinates(row["latitude"], row["longitude"])
			if !ok {
				log.Printf("Skipping port %q: unparseable coordinates (%q, %q)",
					name, row["latitude"], row["longitude"])
				result.SkippedRows++
				continue
			}
		}

		_, created, err := imp.ensurePort(ctx, name, countryID, lat, lon)
		if err != nil {
			return err
		}
		if created {
			result.Ports++
		}
	}
	return nil
}

// linkRoutePorts resolves the route sheet's comma-separated ports column
// after the port sheet has loaded.
func (imp *LogisticsImporter) linkRoutePorts(ctx context.Context, table *Table, result *LogisticsImportResult) error {
	if !table.HasColumn("ports") {
		return nil
	}

	for _, row := range table.Rows {
		name := row["route_name"]
		if name == "" || row["ports"] == "" {
			continue
		}
		routeID, found, err := imp.findRoute(ctx, name)
		if err != nil {
			return err
		}
		if !found {
			continue
		}

		for _, portName := range strings.Split(row["ports"], ",") {
			portName = strings.TrimSpace(portName)
			if portName == "" || portName == "-" {
				continue
			}
			portID, found, err := imp.findPort(ctx, portName)
			if err != nil {
				return err
			}
			if !found {
				log.Printf("Port %q not found for route %q", portName, name)
				result.SkippedRefs++
				continue
			}
			linked, err := imp.linkPortRoute(ctx, portID, routeID)
			if err != nil {
				return err
			}
			if linked {
				result.Links++
			}
		}
	}
	return nil
}

func (imp *LogisticsImporter) ensureChokePoint(ctx context.Context, name string, lat, lon float64) (uuid.UUID, bool, error) {
	pointSlug := slug.Make(name)

	var point models.ChokePoint
	err := imp.DB.WithContext(ctx).Where("slug = ?", pointSlug).First(&point).Error
	if err == nil {
		return point.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up chokepoint %q: %w", name, err)
	}

	point = models.ChokePoint{Name: name, Slug: pointSlug, Latitude: lat, Longitude: lon}
	if err := imp.DB.WithContext(ctx).Create(&point).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create chokepoint %q: %w", name, err)
	}
	return point.ID, true, nil
}

func (imp *LogisticsImporter) ensureCargoType(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var cargoType models.CargoType
	err := imp.DB.WithContext(ctx).Where("name = ?", name).First(&cargoType).Error
	if err == nil {
		return cargoType.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up cargo type %q: %w", name, err)
	}

	cargoType = models.CargoType{Name: name}
	if err := imp.DB.WithContext(ctx).Create(&cargoType).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create cargo type %q: %w", name, err)
	}
	return cargoType.ID, true, nil
}

func (imp *LogisticsImporter) ensureRoute(ctx context.Context, name string) (uuid.UUID, bool, error) {
	routeSlug := slug.Make(name)

	var route models.Route
	err := imp.DB.WithContext(ctx).Where("slug = ?", routeSlug).First(&route).Error
	if err == nil {
		return route.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up route %q: %w", name, err)
	}

	route = models.Route{Name: name, Slug: routeSlug}
	if err := imp.DB.WithContext(ctx).Create(&route).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create route %q: %w", name, err)
	}
	return route.ID, true, nil
}

func (imp *LogisticsImporter) ensurePort(ctx context.Context, name string, countryID uuid.UUID, lat, lon float64) (uuid.UUID, bool, error) {
	var port models.CountryPort
	err := imp.DB.WithContext(ctx).
		Where("name = ? AND country_id = ?", name, countryID).
		First(&port).Error
	if err == nil {
		return port.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to look up port %q: %w", name, err)
	}

	port = models.CountryPort{Name: name, CountryID: countryID, Latitude: lat, Longitude: lon}
	if err := imp.DB.WithContext(ctx).Create(&port).Error; err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to create port %q: %w", name, err)
	}
	return port.ID, true, nil
}

func (imp *LogisticsImporter) findChokePoint(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var point models.ChokePoint
	err := imp.DB.WithContext(ctx).Where("slug = ?", slug.Make(name)).First(&point).Error
	if err == nil {
		return point.ID, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	return uuid.Nil, false, fmt.Errorf("failed to look up chokepoint %q: %w", name, err)
}

func (imp *LogisticsImporter) findRoute(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var route models.Route
	err := imp.DB.WithContext(ctx).Where("slug = ?", slug.Make(name)).First(&route).Error
	if err == nil {
		return route.ID, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	return uuid.Nil, false, fmt.Errorf("failed to look up route %q: %w", name, err)
}

func (imp *LogisticsImporter) findPort(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var port models.CountryPort
	err := imp.DB.WithContext(ctx).Where("name = ?", name).First(&port).Error
	if err == nil {
		return port.ID, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	return uuid.Nil, false, fmt.Errorf("failed to look up port %q: %w", name, err)
}

func (imp *LogisticsImporter) findCountry(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var country models.Country
	err := imp.DB.WithContext(ctx).Where("name = ?", name).First(&country).Error
	if err == nil {
		return country.ID, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	return uuid.Nil, false, fmt.Errorf("failed to look up country %q: %w", name, err)
}

func (imp *LogisticsImporter) findMaterial(ctx context.Context, name string) (uuid.UUID, bool, error) {
	var material models.RawMaterial
	err := imp.DB.WithContext(ctx).Where("slug = ?", slug.Make(name)).First(&material).Error
	if err == nil {
		return material.ID, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, false, nil
	}
	return uuid.Nil, false, fmt.Errorf("failed to look up material %q: %w", name, err)
}

func (imp *LogisticsImporter) linkChokePointCargoType(ctx context.Context, chokePointID, cargoTypeID uuid.UUID) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.ChokePointCargoType{}).
		Where("choke_point_id = ? AND cargo_type_id = ?", chokePointID, cargoTypeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up chokepoint cargo link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.ChokePointCargoType{ChokePointID: chokePointID, CargoTypeID: cargoTypeID}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create chokepoint cargo link: %w", err)
	}
	return true, nil
}

func (imp *LogisticsImporter) linkChokePointMaterial(ctx context.Context, chokePointID, materialID uuid.UUID) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.ChokePointRawMaterial{}).
		Where("choke_point_id = ? AND raw_material_id = ?", chokePointID, materialID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up chokepoint material link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.ChokePointRawMaterial{ChokePointID: chokePointID, RawMaterialID: materialID}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create chokepoint material link: %w", err)
	}
	return true, nil
}

func (imp *LogisticsImporter) linkRouteChokePoint(ctx context.Context, routeID, chokePointID uuid.UUID) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.RouteChokePoint{}).
		Where("route_id = ? AND choke_point_id = ?", routeID, chokePointID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up route chokepoint link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.RouteChokePoint{RouteID: routeID, ChokePointID: chokePointID}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create route chokepoint link: %w", err)
	}
	return true, nil
}

func (imp *LogisticsImporter) linkRouteCargoType(ctx context.Context, routeID, cargoTypeID uuid.UUID) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.RouteCargoType{}).
		Where("route_id = ? AND cargo_type_id = ?", routeID, cargoTypeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up route cargo link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.RouteCargoType{RouteID: routeID, CargoTypeID: cargoTypeID}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create route cargo link: %w", err)
	}
	return true, nil
}

func (imp *LogisticsImporter) linkPortRoute(ctx context.Context, portID, routeID uuid.UUID) (bool, error) {
	var count int64
	err := imp.DB.WithContext(ctx).Model(&models.CountryPortRoute{}).
		Where("country_port_id = ? AND route_id = ?", portID, routeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up port route link: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	link := models.CountryPortRoute{CountryPortID: portID, RouteID: routeID}
	if err := imp.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to create port route link: %w", err)
	}
	return true, nil
}

// parseCoordinates parses a latitude and longitude cell pair; both must be
// valid numbers.
func parseCoordinates(latCell, lonCell string) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(latCell, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(lonCell, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
