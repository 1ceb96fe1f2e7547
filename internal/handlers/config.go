package handlers

import (
	"github.com/gofiber/fiber/v2"

	"propintel/internal/config"
	"propintel/internal/services"
)

// ConfigHandler exposes the provider configuration status
type ConfigHandler struct {
	cfg       *config.Config
	report    config.Report
	llm       *services.LLMService
	stability *services.StabilityService
}

// NewConfigHandler creates the config status handler. The report is the
// startup validation result; configuration is immutable, so it never changes.
func NewConfigHandler(cfg *config.Config, report config.Report, llm *services.LLMService, stability *services.StabilityService) *ConfigHandler {
	return &ConfigHandler{
		cfg:       cfg,
		report:    report,
		llm:       llm,
		stability: stability,
	}
}

// Status handles GET /api/config/status
func (h *ConfigHandler) Status(c *fiber.Ctx) error {
	providers := fiber.Map{}
	if h.llm != nil {
		for name, status := range h.llm.HealthStatus() {
			providers[name] = status
		}
	}
	if h.stability != nil {
		providers[config.ProviderStability] = h.stability.Status()
	}

	return c.JSON(fiber.Map{
		"config_ok":        h.report.OK,
		"issues":           h.report.Issues,
		"enabled_services": config.EnabledServices(h.cfg),
		"text_providers":   config.EnabledTextProviders(h.cfg),
		"providers":        providers,
		"llm_timeout":      h.cfg.LLMTimeout,
		"llm_max_retries":  h.cfg.LLMMaxRetries,
	})
}
