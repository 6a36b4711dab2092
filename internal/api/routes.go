/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 */

package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/materia-project/backend/internal/api/handlers"
	"github.com/materia-project/backend/internal/api/middleware"
	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Middleware
	if err := middleware.InitAuthMiddleware(cfg); err != nil {
		log.Printf("Failed to init auth middleware: %v", err)
		// We don't panic here so the app can start in dev without a secret,
		// but protected routes will fail.
	}

	// 2. Initialize Services
	sources := services.DefaultSources(cfg)
	syncService := services.NewPriceSyncService(db, rdb, cfg, sources)
	hub := services.NewSyncStreamHub(rdb, services.SyncProgressChannel)

	// 3. Initialize Handlers
	materialHandler := handlers.NewMaterialHandler(db)
	syncHandler := handlers.NewSyncHandler(syncService, hub)

	// 4. Define Routes
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := api.Group("/v1")

	// Material Routes (Public)
	materials := v1.Group("/materials")
	materials.Get("/", materialHandler.ListMaterials)
	materials.Get("/:id", materialHandler.GetMaterial)
	materials.Get("/:id/prices", materialHandler.GetMaterialPrices)
	materials.Get("/:id/producers", materialHandler.GetMaterialProducers)

	// Sync Routes (runs and stream public, trigger protected)
	sync := v1.Group("/sync")
	sync.Get("/runs", syncHandler.ListRuns)
	sync.Get("/runs/:id", syncHandler.GetRun)
	sync.Get("/stream", syncHandler.StreamSync)
	sync.Get("/:source/last", syncHandler.GetLastRun)
	sync.Post("/:source", middleware.Protected(), syncHandler.TriggerSync)
}
