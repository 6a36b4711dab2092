/**
 * @description
 * Raw material API handlers.
 * Exposes the material catalog, per-material price history and producing
 * countries.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/store
 */

package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/materia-project/backend/internal/store"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type MaterialHandler struct {
	Materials *store.MaterialStore
	Prices    *store.PriceStore
}

func NewMaterialHandler(db *gorm.DB) *MaterialHandler {
	return &MaterialHandler{
		Materials: store.NewMaterialStore(db),
		Prices:    store.NewPriceStore(db),
	}
}

// ListMaterials returns the material catalog
// GET /api/v1/materials?source=&limit=&offset=
func (h *MaterialHandler) ListMaterials(c *fiber.Ctx) error {
	ctx := c.Context()

	limit, offset, err := parsePagination(c.Query("limit"), c.Query("offset"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	materials, total, err := h.Materials.ListMaterials(ctx, c.Query("source"), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch materials",
		})
	}

	return c.JSON(fiber.Map{
		"materials": materials,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetMaterial returns one material with its applications and industries
// GET /api/v1/materials/:id
func (h *MaterialHandler) GetMaterial(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid material id"})
	}

	profile, err := h.Materials.GetProfile(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Material not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch material",
		})
	}

	return c.JSON(profile)
}

// GetMaterialPrices returns the price history of one material
// GET /api/v1/materials/:id/prices?from=&to=&limit=
func (h *MaterialHandler) GetMaterialPrices(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid material id"})
	}

	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse(dateLayout, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from date, expected YYYY-MM-DD"})
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(dateLayout, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to date, expected YYYY-MM-DD"})
		}
	}

	limit := c.QueryInt("limit", 0)

	prices, err := h.Prices.ListPrices(ctx, id, from, to, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch prices",
		})
	}

	return c.JSON(fiber.Map{
		"material_id": id,
		"prices":      prices,
		"count":       len(prices),
	})
}

// GetMaterialProducers returns the producing countries of one material
// GET /api/v1/materials/:id/producers
func (h *MaterialHandler) GetMaterialProducers(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid material id"})
	}

	producers, err := h.Materials.Producers(ctx, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch producers",
		})
	}

	return c.JSON(fiber.Map{
		"material_id": id,
		"producers":   producers,
	})
}
