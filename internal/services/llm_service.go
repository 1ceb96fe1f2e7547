package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"propintel/internal/config"
	"propintel/internal/health"
	"propintel/internal/logging"
	"propintel/internal/models"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
	geminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta"

	claudeMaxTokens = 1000
	geminiMaxTokens = 1500
)

// LLMService dispatches text-generation calls to the usable providers,
// walking each provider's model priority list until one answers.
type LLMService struct {
	cfg    *config.Config
	health *health.Service
	client *http.Client

	// Overridable for tests
	anthropicURL string
	geminiURL    string

	mu                 sync.RWMutex
	workingClaudeModel string
	workingGeminiModel string
}

// NewLLMService creates the LLM dispatch service. The HTTP timeout comes from
// the snapshot even when the validator flagged it unsafe.
func NewLLMService(cfg *config.Config, healthSvc *health.Service) *LLMService {
	return &LLMService{
		cfg:          cfg,
		health:       healthSvc,
		client:       &http.Client{Timeout: time.Duration(cfg.LLMTimeout) * time.Second},
		anthropicURL: anthropicMessagesURL,
		geminiURL:    geminiBaseURL,
	}
}

// AvailableProviders returns usable text providers that are not currently
// marked unhealthy.
func (s *LLMService) AvailableProviders() []string {
	var names []string
	for _, name := range config.EnabledTextProviders(s.cfg) {
		if s.health == nil || s.health.IsHealthy(health.CapabilityText, name) {
			names = append(names, name)
		}
	}
	return names
}

// HealthStatus reports per-provider availability for status endpoints
func (s *LLMService) HealthStatus() map[string]models.ProviderStatus {
	s.mu.RLock()
	claudeModel := s.workingClaudeModel
	geminiModel := s.workingGeminiModel
	s.mu.RUnlock()

	return map[string]models.ProviderStatus{
		config.ProviderClaude: {
			Enabled:          s.cfg.Claude.Enabled,
			APIKeyConfigured: s.cfg.Claude.APIKey != "",
			Available:        s.cfg.Claude.Usable() && (s.health == nil || s.health.IsHealthy(health.CapabilityText, config.ProviderClaude)),
			WorkingModel:     claudeModel,
		},
		config.ProviderGemini: {
			Enabled:          s.cfg.Gemini.Enabled,
			APIKeyConfigured: s.cfg.Gemini.APIKey != "",
			Available:        s.cfg.Gemini.Usable() && (s.health == nil || s.health.IsHealthy(health.CapabilityText, config.ProviderGemini)),
			WorkingModel:     geminiModel,
		},
	}
}

// AnalyzeWithClaude runs the strategic research pass
func (s *LLMService) AnalyzeWithClaude(ctx context.Context, question, rssContext string) *models.LLMResult {
	if !s.cfg.Claude.Usable() {
		return errorResult(config.ProviderClaude, "claude is not enabled or has no API key")
	}

	prompt := buildClaudePrompt(question, rssContext)
	start := time.Now()

	text, model, err := s.callWithFallback(ctx, s.cfg.Claude, func(ctx context.Context, model string) (string, error) {
		return s.callClaude(ctx, model, prompt)
	})

	elapsed := time.Since(start).Seconds()
	s.recordOutcome(config.ProviderClaude, err == nil, elapsed)

	if err != nil {
		log.Printf("❌ Claude analysis failed: %v", err)
		return errorResult(config.ProviderClaude, fmt.Sprintf("claude analysis failed: %v", err))
	}

	s.mu.Lock()
	s.workingClaudeModel = model
	s.mu.Unlock()

	logging.WithProvider(slog.Default(), config.ProviderClaude, model).
		Debug("Text generation succeeded", "processing_time", elapsed)

	return &models.LLMResult{
		Success:        true,
		Analysis:       text,
		Provider:       config.ProviderClaude,
		ModelUsed:      model,
		ProcessingTime: elapsed,
	}
}

// AnalyzeWithGemini runs the comprehensive synthesis pass. claudeContext may
// be empty when the strategic pass failed; the prompt degrades gracefully.
func (s *LLMService) AnalyzeWithGemini(ctx context.Context, question, claudeContext, rssContext string) *models.LLMResult {
	if !s.cfg.Gemini.Usable() {
		return errorResult(config.ProviderGemini, "gemini is not enabled or has no API key")
	}

	prompt := buildGeminiPrompt(question, claudeContext, rssContext)
	start := time.Now()

	text, model, err := s.callWithFallback(ctx, s.cfg.Gemini, func(ctx context.Context, model string) (string, error) {
		return s.callGemini(ctx, model, prompt)
	})

	elapsed := time.Since(start).Seconds()
	s.recordOutcome(config.ProviderGemini, err == nil, elapsed)

	if err != nil {
		log.Printf("❌ Gemini analysis failed: %v", err)
		return errorResult(config.ProviderGemini, fmt.Sprintf("gemini analysis failed: %v", err))
	}

	s.mu.Lock()
	s.workingGeminiModel = model
	s.mu.Unlock()

	logging.WithProvider(slog.Default(), config.ProviderGemini, model).
		Debug("Text generation succeeded", "processing_time", elapsed)

	return &models.LLMResult{
		Success:        true,
		Analysis:       text,
		Provider:       config.ProviderGemini,
		ModelUsed:      model,
		ProcessingTime: elapsed,
	}
}

// callWithFallback walks the model priority list. Transient failures consume
// the retry budget before moving to the next model; hard model errors move on
// immediately.
func (s *LLMService) callWithFallback(ctx context.Context, spec config.ProviderSpec, call func(ctx context.Context, model string) (string, error)) (string, string, error) {
	var lastErr error

	for _, model := range spec.Models {
		attempts := 1 + s.cfg.LLMMaxRetries
		for attempt := 0; attempt < attempts; attempt++ {
			text, err := call(ctx, model)
			if err == nil {
				return text, model, nil
			}
			lastErr = err

			if !isTransient(err) {
				break // wrong model or bad request, try next model
			}
			if ctx.Err() != nil {
				return "", "", ctx.Err()
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no models configured for provider %s", spec.Name)
	}
	return "", "", lastErr
}

func (s *LLMService) recordOutcome(provider string, success bool, seconds float64) {
	if m := GetMetrics(); m != nil {
		m.RecordLLMRequest(provider, success, seconds)
	}
	if s.health == nil {
		return
	}
	if success {
		s.health.MarkHealthy(health.CapabilityText, provider)
	} else {
		s.health.MarkUnhealthy(health.CapabilityText, provider, "request failed")
	}
}

// --- Anthropic messages API ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *LLMService) callClaude(ctx context.Context, model, prompt string) (string, error) {
	reqBody, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: claudeMaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal claude request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.anthropicURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create claude request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.cfg.Claude.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read claude response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", httpStatusError("claude", resp.StatusCode, body)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse claude response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("claude API error: %s", parsed.Error.Message)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("claude returned no text content")
}

// --- Gemini generateContent API ---

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (s *LLMService) callGemini(ctx context.Context, model, prompt string) (string, error) {
	reqBody, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{MaxOutputTokens: geminiMaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.geminiURL, model, s.cfg.Gemini.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", httpStatusError("gemini", resp.StatusCode, body)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini API error: %s", parsed.Error.Message)
	}

	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("gemini returned no text content")
}

// --- Prompts ---

func buildClaudePrompt(question, rssContext string) string {
	var b strings.Builder
	if rssContext != "" {
		b.WriteString(rssContext)
		b.WriteString("\n\n")
	}
	b.WriteString(`As a strategic property research analyst, analyze this question using the Australian property market data above. Focus on:

1. Strategic context and market positioning
2. Key trends and patterns from the data sources
3. Risk assessment and opportunities
4. Which Brisbane suburbs or Australian regions are most relevant

Question: "`)
	b.WriteString(question)
	b.WriteString(`"

Provide a concise strategic research foundation for a comprehensive property analysis.`)
	return b.String()
}

func buildGeminiPrompt(question, claudeContext, rssContext string) string {
	var b strings.Builder
	if rssContext != "" {
		b.WriteString(rssContext)
		b.WriteString("\n\n")
	}
	b.WriteString(`You are an Australian property market analyst. Provide a comprehensive answer to this question:

"`)
	b.WriteString(question)
	b.WriteString(`"

Include specific suburbs and areas, current market trends from the data, investment or development implications, and practical next steps for property professionals.`)

	if claudeContext != "" {
		b.WriteString("\n\nInitial research context:\n")
		b.WriteString(claudeContext)
		b.WriteString("\n\nBuild upon this context in your analysis.")
	}
	return b.String()
}

// --- Helpers ---

func errorResult(provider, msg string) *models.LLMResult {
	return &models.LLMResult{
		Success:  false,
		Provider: provider,
		Error:    msg,
	}
}

type httpError struct {
	provider string
	status   int
	body     string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.provider, e.status, e.body)
}

func httpStatusError(provider string, status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	return &httpError{provider: provider, status: status, body: snippet}
}

// isTransient reports whether a failed call is worth retrying on the same
// model. 4xx responses mean the request or model is wrong; everything else
// (network errors, 429, 5xx) may succeed on retry.
func isTransient(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.status == http.StatusTooManyRequests || he.status >= 500
	}
	return true
}
