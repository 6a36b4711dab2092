/**
 * @description
 * Sync API handlers.
 * Triggers price sync runs for a source, exposes run history and the last run
 * summary, and streams live progress events over SSE.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - github.com/gosimple/slug: URL-safe source keys
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/services"
	"gorm.io/gorm"
)

type SyncHandler struct {
	Service *services.PriceSyncService
	Hub     *services.SyncStreamHub
}

func NewSyncHandler(service *services.PriceSyncService, hub *services.SyncStreamHub) *SyncHandler {
	return &SyncHandler{Service: service, Hub: hub}
}

type triggerSyncRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Days int    `json:"days"`
}

// TriggerSync starts a sync run for one source and answers 202 with the run
// record. 409 when a run for the source is already in progress.
// POST /api/v1/sync/:source
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	ctx := c.Context()

	sourceName, ok := h.resolveSource(c.Params("source"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown source"})
	}

	var req triggerSyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	ivl, err := intervalFromRequest(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	run, err := h.Service.StartSync(ctx, sourceName, ivl)
	if errors.Is(err, services.ErrSyncInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Sync already in progress for this source"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start sync"})
	}

	return c.Status(fiber.StatusAccepted).JSON(run)
}

// ListRuns returns sync run history, newest first
// GET /api/v1/sync/runs?source=&limit=&offset=
func (h *SyncHandler) ListRuns(c *fiber.Ctx) error {
	ctx := c.Context()

	limit, offset, err := parsePagination(c.Query("limit"), c.Query("offset"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	sourceFilter := c.Query("source")
	if sourceFilter != "" {
		if name, ok := h.resolveSource(sourceFilter); ok {
			sourceFilter = name
		}
	}

	runs, total, err := h.Service.Runs.List(ctx, sourceFilter, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch runs"})
	}

	return c.JSON(fiber.Map{
		"runs":   runs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetRun returns one sync run by id
// GET /api/v1/sync/runs/:id
func (h *SyncHandler) GetRun(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid run id"})
	}

	run, err := h.Service.Runs.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Run not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch run"})
	}

	return c.JSON(run)
}

// GetLastRun returns the most recent run summary for a source
// GET /api/v1/sync/:source/last
func (h *SyncHandler) GetLastRun(c *fiber.Ctx) error {
	ctx := c.Context()

	sourceName, ok := h.resolveSource(c.Params("source"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown source"})
	}

	run, err := h.Service.LastRun(ctx, sourceName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No runs recorded for this source"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch last run"})
	}

	return c.JSON(run)
}

// StreamSync streams live sync progress events over SSE
// GET /api/v1/sync/stream
func (h *SyncHandler) StreamSync(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()

	events, unsubscribe := h.Hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case payload, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}

// resolveSource maps a URL segment to a registered source name. Both the
// canonical name and its slug form are accepted ("metals-api" for
// "Metals API").
func (h *SyncHandler) resolveSource(param string) (string, bool) {
	for _, name := range h.Service.SourceNames() {
		if name == param || slug.Make(name) == strings.ToLower(param) {
			return name, true
		}
	}
	return "", false
}

func intervalFromRequest(req triggerSyncRequest) (pricefeed.Interval, error) {
	var ivl pricefeed.Interval

	if req.From != "" || req.To != "" {
		if req.From == "" || req.To == "" {
			return ivl, fmt.Errorf("from and to must be provided together")
		}
		from, err := time.Parse(dateLayout, req.From)
		if err != nil {
			return ivl, fmt.Errorf("invalid from date, expected YYYY-MM-DD")
		}
		to, err := time.Parse(dateLayout, req.To)
		if err != nil {
			return ivl, fmt.Errorf("invalid to date, expected YYYY-MM-DD")
		}
		if from.After(to) {
			return ivl, fmt.Errorf("from is after to")
		}
		return pricefeed.NewInterval(from, to), nil
	}

	if req.Days > 0 {
		end := pricefeed.DateOf(time.Now().UTC())
		return pricefeed.Interval{Start: end.AddDate(0, 0, -(req.Days - 1)), End: end}, nil
	}

	// Zero interval: the service applies its default lookback window
	return ivl, nil
}

func parsePagination(limitRaw, offsetRaw string) (int, int, error) {
	limit := 50
	offset := 0
	if limitRaw != "" {
		val, err := strconv.Atoi(limitRaw)
		if err != nil || val <= 0 {
			return 0, 0, fmt.Errorf("invalid limit")
		}
		limit = val
	}
	if offsetRaw != "" {
		val, err := strconv.Atoi(offsetRaw)
		if err != nil || val < 0 {
			return 0, 0, fmt.Errorf("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}
