package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"propintel/internal/services"
)

const maxPromptLen = 500

// ImageHandler serves property visualisation generation
type ImageHandler struct {
	stability *services.StabilityService
}

// NewImageHandler creates the visualisation handler
func NewImageHandler(stability *services.StabilityService) *ImageHandler {
	return &ImageHandler{stability: stability}
}

type visualizeRequest struct {
	Prompt string `json:"prompt"`
}

// Visualize handles POST /api/property/visualize
func (h *ImageHandler) Visualize(c *fiber.Ctx) error {
	var req visualizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Prompt is required",
		})
	}
	if len(prompt) > maxPromptLen {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Prompt is too long",
		})
	}

	if !h.stability.Available() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Image generation is not available",
		})
	}

	result := h.stability.GenerateImage(c.Context(), prompt)
	if !result.Success {
		return c.Status(fiber.StatusBadGateway).JSON(result)
	}
	return c.JSON(result)
}
