package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"propintel/internal/config"
	"propintel/internal/health"
	"propintel/internal/models"
)

const stabilityBaseURL = "https://api.stability.ai"

// StabilityService generates property visualisation images through the
// Stability AI text-to-image API.
type StabilityService struct {
	cfg    *config.Config
	health *health.Service
	client *http.Client

	baseURL string // overridable for tests
}

// NewStabilityService creates the image generation service
func NewStabilityService(cfg *config.Config, healthSvc *health.Service) *StabilityService {
	return &StabilityService{
		cfg:     cfg,
		health:  healthSvc,
		client:  &http.Client{Timeout: time.Duration(cfg.LLMTimeout) * time.Second},
		baseURL: stabilityBaseURL,
	}
}

// Available reports whether image generation can currently serve requests
func (s *StabilityService) Available() bool {
	if !s.cfg.Stability.Usable() {
		return false
	}
	return s.health == nil || s.health.IsHealthy(health.CapabilityImage, config.ProviderStability)
}

// Status reports the provider block for status endpoints
func (s *StabilityService) Status() models.ProviderStatus {
	return models.ProviderStatus{
		Enabled:          s.cfg.Stability.Enabled,
		APIKeyConfigured: s.cfg.Stability.APIKey != "",
		Available:        s.Available(),
	}
}

type stabilityTextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityTextPrompt `json:"text_prompts"`
	CfgScale    float64               `json:"cfg_scale"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Samples     int                   `json:"samples"`
	Steps       int                   `json:"steps"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
	Message string `json:"message"`
}

// GenerateImage renders a property visualisation for the given prompt,
// walking the configured engine list until one succeeds.
func (s *StabilityService) GenerateImage(ctx context.Context, prompt string) *models.ImageResult {
	if !s.cfg.Stability.Usable() {
		return &models.ImageResult{Success: false, Error: "stability_ai is not enabled or has no API key"}
	}

	start := time.Now()
	var lastErr error

	for _, engine := range s.cfg.Stability.Models {
		image, err := s.generate(ctx, engine, prompt)
		if err == nil {
			elapsed := time.Since(start).Seconds()
			if s.health != nil {
				s.health.MarkHealthy(health.CapabilityImage, config.ProviderStability)
			}
			return &models.ImageResult{
				Success:        true,
				ImageBase64:    image,
				Model:          engine,
				ProcessingTime: elapsed,
			}
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	log.Printf("❌ Image generation failed: %v", lastErr)
	if s.health != nil {
		s.health.MarkUnhealthy(health.CapabilityImage, config.ProviderStability, lastErr.Error())
	}
	return &models.ImageResult{
		Success:        false,
		ProcessingTime: time.Since(start).Seconds(),
		Error:          fmt.Sprintf("image generation failed: %v", lastErr),
	}
}

func (s *StabilityService) generate(ctx context.Context, engine, prompt string) (string, error) {
	reqBody, err := json.Marshal(stabilityRequest{
		TextPrompts: []stabilityTextPrompt{{Text: prompt, Weight: 1}},
		CfgScale:    7,
		Width:       1024,
		Height:      1024,
		Samples:     1,
		Steps:       30,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal image request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", s.baseURL, engine)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Stability.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read image response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", httpStatusError("stability_ai", resp.StatusCode, body)
	}

	var parsed stabilityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse image response: %w", err)
	}

	for _, artifact := range parsed.Artifacts {
		if artifact.Base64 != "" {
			return artifact.Base64, nil
		}
	}
	return "", fmt.Errorf("stability returned no image artifacts")
}
