package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"propintel/internal/database"
	"propintel/internal/models"
	"propintel/internal/services"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// PropertyHandler serves the property analysis API
type PropertyHandler struct {
	property  *services.PropertyService
	analytics *services.AnalyticsService
	db        *database.DB
}

// NewPropertyHandler creates the property API handler. db may be nil; the
// history endpoints then report persistence as unavailable.
func NewPropertyHandler(property *services.PropertyService, analytics *services.AnalyticsService, db *database.DB) *PropertyHandler {
	return &PropertyHandler{
		property:  property,
		analytics: analytics,
		db:        db,
	}
}

// Questions handles GET /api/property/questions
func (h *PropertyHandler) Questions(c *fiber.Ctx) error {
	limit := parseLimit(c.Query("limit"), defaultHistoryLimit)
	return c.JSON(fiber.Map{
		"questions": h.property.PresetQuestions(limit),
	})
}

// Analyze handles POST /api/property/analyze
func (h *PropertyHandler) Analyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.property.Analyze(c.Context(), req.Question)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if !req.IncludeDetails {
		result.ClaudeResult = nil
		result.GeminiResult = nil
		result.DataSources = nil
	}

	return c.JSON(result)
}

// History handles GET /api/property/history
func (h *PropertyHandler) History(c *fiber.Ctx) error {
	if h.db == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Query history is unavailable",
		})
	}

	limit := parseLimit(c.Query("limit"), defaultHistoryLimit)
	offset := c.QueryInt("offset", 0)
	records, err := h.db.History(limit, offset)
	if err != nil {
		slog.Error("Failed to load query history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
		"count":   len(records),
	})
}

// Stats handles GET /api/property/stats
func (h *PropertyHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.analytics.Snapshot())
}

// Reset handles POST /api/property/reset - clears stored query history
func (h *PropertyHandler) Reset(c *fiber.Ctx) error {
	if h.db == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Query history is unavailable",
		})
	}

	deleted, err := h.db.ClearAll()
	if err != nil {
		slog.Error("Failed to clear query history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear query history",
		})
	}

	if err := h.property.ClearCachedAnswers(c.Context()); err != nil {
		slog.Warn("Failed to clear cached answers", "error", err)
	}

	slog.Info("Query history cleared", "deleted", deleted)
	return c.JSON(fiber.Map{
		"success": true,
		"deleted": deleted,
	})
}

// parseLimit parses a limit query param, clamping to the allowed range
func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}
