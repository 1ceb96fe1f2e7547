package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"propintel/internal/config"
	"propintel/internal/database"
	"propintel/internal/health"
	"propintel/internal/services"
)

// HealthHandler serves the liveness and deep health endpoints
type HealthHandler struct {
	cfg        *config.Config
	db         *database.DB
	redis      *services.RedisService
	rss        *services.RSSService
	healthSvc  *health.Service
	instanceID string
	startedAt  time.Time
}

// NewHealthHandler creates the health endpoints handler. Every dependency
// except cfg may be nil; missing components report as unavailable.
func NewHealthHandler(cfg *config.Config, db *database.DB, redis *services.RedisService, rss *services.RSSService, healthSvc *health.Service, instanceID string) *HealthHandler {
	return &HealthHandler{
		cfg:        cfg,
		db:         db,
		redis:      redis,
		rss:        rss,
		healthSvc:  healthSvc,
		instanceID: instanceID,
		startedAt:  time.Now(),
	}
}

// Basic handles GET /health - a cheap liveness probe
func (h *HealthHandler) Basic(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"providers":      len(config.EnabledServices(h.cfg)),
	}
	if h.instanceID != "" {
		resp["instance"] = h.instanceID
	}
	return c.JSON(resp)
}

// Deep handles GET /health/deep - verifies every dependency
func (h *HealthHandler) Deep(c *fiber.Ctx) error {
	components := fiber.Map{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			components["database"] = fiber.Map{"status": "unhealthy", "error": err.Error()}
			healthy = false
		} else {
			components["database"] = fiber.Map{"status": "healthy"}
		}
	} else {
		components["database"] = fiber.Map{"status": "unavailable"}
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Context()); err != nil {
			components["redis"] = fiber.Map{"status": "unhealthy", "error": err.Error()}
		} else {
			components["redis"] = fiber.Map{"status": "healthy"}
		}
	} else {
		components["redis"] = fiber.Map{"status": "not_configured"}
	}

	if h.rss != nil {
		active, total := h.rss.ActiveFeedCount()
		components["feeds"] = fiber.Map{
			"status": "healthy",
			"active": active,
			"total":  total,
		}
	}

	// Active provider probes run on every deep check; the scheduler sweep
	// keeps passive state fresh between calls, but this endpoint must report
	// live results.
	if h.healthSvc != nil {
		checks := fiber.Map{}
		for key, err := range h.healthSvc.CheckAll() {
			if err != nil {
				checks[key] = fiber.Map{"status": "unhealthy", "error": err.Error()}
			} else {
				checks[key] = fiber.Map{"status": "healthy"}
			}
		}
		components["providers"] = fiber.Map{
			"checks":  checks,
			"summary": h.healthSvc.Summary(),
		}
	}

	status := "healthy"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}
