package handlers

import (
	"github.com/gofiber/fiber/v2"

	"propintel/internal/services"
)

// RSSHandler exposes feed diagnostics for operators
type RSSHandler struct {
	rss *services.RSSService
}

// NewRSSHandler creates the feed diagnostics handler
func NewRSSHandler(rss *services.RSSService) *RSSHandler {
	return &RSSHandler{rss: rss}
}

// Debug handles GET /debug/rss - per-feed fetch status and connectivity
func (h *RSSHandler) Debug(c *fiber.Ctx) error {
	if h.rss == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Feed service is unavailable",
		})
	}

	active, total := h.rss.ActiveFeedCount()
	resp := fiber.Map{
		"active": active,
		"total":  total,
		"feeds":  h.rss.FeedStatus(),
	}

	if c.Query("test") == "1" {
		resp["connectivity"] = h.rss.TestConnection(c.Context())
	}

	return c.JSON(resp)
}

// Refresh handles POST /debug/rss/refresh - forces a feed refetch
func (h *RSSHandler) Refresh(c *fiber.Ctx) error {
	if h.rss == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Feed service is unavailable",
		})
	}

	if err := h.rss.Refresh(c.Context()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	active, total := h.rss.ActiveFeedCount()
	return c.JSON(fiber.Map{
		"success": true,
		"active":  active,
		"total":   total,
	})
}
