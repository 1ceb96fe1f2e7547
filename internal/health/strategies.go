package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	geminiGenerateURL    = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"
	stabilityEnginesURL  = "https://api.stability.ai/v1/engines/list"

	checkTimeout = 30 * time.Second
)

// TextHealthCheck probes a text provider with a minimal completion request
type TextHealthCheck struct{}

func (t *TextHealthCheck) Capability() CapabilityType { return CapabilityText }

func (t *TextHealthCheck) Check(entry *ProviderHealth, getter ProviderGetter) (int, error) {
	provider, err := getter(entry.ProviderName)
	if err != nil {
		return 0, fmt.Errorf("provider lookup failed: %w", err)
	}
	if !provider.Enabled {
		return 0, fmt.Errorf("provider %s is disabled", provider.Name)
	}
	if provider.APIKey == "" {
		return 0, fmt.Errorf("provider %s has no API key configured", provider.Name)
	}
	if len(provider.Models) == 0 {
		return 0, fmt.Errorf("provider %s has no models configured", provider.Name)
	}

	model := provider.Models[0]

	switch provider.Name {
	case "claude":
		body := map[string]interface{}{
			"model":      model,
			"max_tokens": 1,
			"messages": []map[string]interface{}{
				{"role": "user", "content": "hi"},
			},
		}
		headers := map[string]string{
			"x-api-key":         provider.APIKey,
			"anthropic-version": "2023-06-01",
		}
		return doJSONCheck("POST", anthropicMessagesURL, body, headers)

	case "gemini":
		body := map[string]interface{}{
			"contents": []map[string]interface{}{
				{"parts": []map[string]string{{"text": "hi"}}},
			},
			"generationConfig": map[string]interface{}{"maxOutputTokens": 1},
		}
		url := fmt.Sprintf(geminiGenerateURL, model, provider.APIKey)
		return doJSONCheck("POST", url, body, nil)

	default:
		return 0, fmt.Errorf("no text health check for provider %s", provider.Name)
	}
}

// ImageHealthCheck probes the image provider with a lightweight engines listing
type ImageHealthCheck struct{}

func (i *ImageHealthCheck) Capability() CapabilityType { return CapabilityImage }

func (i *ImageHealthCheck) Check(entry *ProviderHealth, getter ProviderGetter) (int, error) {
	provider, err := getter(entry.ProviderName)
	if err != nil {
		return 0, fmt.Errorf("provider lookup failed: %w", err)
	}
	if !provider.Enabled {
		return 0, fmt.Errorf("provider %s is disabled", provider.Name)
	}
	if provider.APIKey == "" {
		return 0, fmt.Errorf("provider %s has no API key configured", provider.Name)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + provider.APIKey,
	}
	return doJSONCheck("GET", stabilityEnginesURL, nil, headers)
}

// doJSONCheck issues the probe request and maps non-2xx responses to errors
func doJSONCheck(method, url string, body interface{}, headers map[string]string) (int, error) {
	var reader io.Reader
	if body != nil {
		requestJSON, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal health check request: %w", err)
		}
		reader = bytes.NewReader(requestJSON)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create health check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: checkTimeout}
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	latencyMs := int(time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return latencyMs, fmt.Errorf("health check returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return latencyMs, nil
}
