package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Index returns the API landing page with available endpoints
func Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "Brisbane Property Intelligence",
		"version": Version,
		"status":  "running",
		"endpoints": fiber.Map{
			"health":        "/health",
			"deep_health":   "/health/deep",
			"metrics":       "/metrics",
			"config_status": "/api/config/status",
			"questions":     "/api/property/questions",
			"analyze":       "POST /api/property/analyze",
			"history":       "/api/property/history",
			"stats":         "/api/property/stats",
			"visualize":     "POST /api/property/visualize",
		},
	})
}
