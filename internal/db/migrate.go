/**
 * @description
 * Schema migration for all tables owned by this backend.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package db

import (
	"github.com/materia-project/backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table this backend owns.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.ApiSource{},
		&models.RawMaterial{},
		&models.RawMaterialPrice{},
		&models.SyncRun{},
		&models.Application{},
		&models.Industry{},
		&models.Country{},
		&models.RawMaterialApplication{},
		&models.RawMaterialIndustry{},
		&models.CountryRawMaterial{},
		&models.ChokePoint{},
		&models.CargoType{},
		&models.Route{},
		&models.CountryPort{},
		&models.ChokePointCargoType{},
		&models.ChokePointRawMaterial{},
		&models.RouteChokePoint{},
		&models.RouteCargoType{},
		&models.CountryPortRoute{},
	)
}
