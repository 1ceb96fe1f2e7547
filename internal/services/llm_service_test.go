package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"propintel/internal/config"
)

func testLLMConfig() *config.Config {
	return &config.Config{
		Claude:        config.ProviderSpec{Name: config.ProviderClaude, APIKey: "test-key", Enabled: true, Models: []string{"claude-old", "claude-new"}},
		Gemini:        config.ProviderSpec{Name: config.ProviderGemini, APIKey: "test-key", Enabled: true, Models: []string{"gemini-flash"}},
		LLMTimeout:    10,
		LLMMaxRetries: 1,
	}
}

func TestClaudeModelFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Missing anthropic-version header")
		}

		// First model is retired; second one answers
		if req.Model == "claude-old" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"not_found_error","message":"model not found"}}`)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"strategic analysis"}]}`)
	}))
	defer server.Close()

	svc := NewLLMService(testLLMConfig(), nil)
	svc.anthropicURL = server.URL

	result := svc.AnalyzeWithClaude(context.Background(), "Which suburbs are growing?", "")
	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if result.ModelUsed != "claude-new" {
		t.Errorf("Expected fallback to claude-new, got %q", result.ModelUsed)
	}
	if result.Analysis != "strategic analysis" {
		t.Errorf("Unexpected analysis: %q", result.Analysis)
	}
}

func TestClaudeRetriesTransientFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer server.Close()

	cfg := testLLMConfig()
	cfg.Claude.Models = []string{"claude-only"}
	svc := NewLLMService(cfg, nil)
	svc.anthropicURL = server.URL

	result := svc.AnalyzeWithClaude(context.Background(), "question", "")
	if !result.Success {
		t.Fatalf("Expected success after retry, got: %s", result.Error)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls (1 failure + 1 retry), got %d", calls)
	}
}

func TestClaudeSkipsWhenNotUsable(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Claude.APIKey = ""

	svc := NewLLMService(cfg, nil)
	result := svc.AnalyzeWithClaude(context.Background(), "question", "")
	if result.Success {
		t.Error("Provider without an API key must not be called")
	}
	if result.Provider != config.ProviderClaude {
		t.Errorf("Expected provider claude, got %q", result.Provider)
	}
}

func TestGeminiIncludesResearchContext(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		gotPrompt = req.Contents[0].Parts[0].Text
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"full answer"}]}}]}`)
	}))
	defer server.Close()

	svc := NewLLMService(testLLMConfig(), nil)
	svc.geminiURL = server.URL

	result := svc.AnalyzeWithGemini(context.Background(), "question", "research notes", "news context")
	if !result.Success {
		t.Fatalf("Expected success, got: %s", result.Error)
	}
	for _, fragment := range []string{"question", "research notes", "news context"} {
		if !strings.Contains(gotPrompt, fragment) {
			t.Errorf("Prompt missing %q", fragment)
		}
	}
}

func TestHealthStatusReflectsConfig(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Gemini.Enabled = false

	svc := NewLLMService(cfg, nil)
	status := svc.HealthStatus()

	if !status[config.ProviderClaude].Available {
		t.Error("Claude should be available")
	}
	if status[config.ProviderGemini].Available {
		t.Error("Disabled Gemini should not be available")
	}
	if !status[config.ProviderGemini].APIKeyConfigured {
		t.Error("Gemini key is configured even while disabled")
	}
}

func TestAvailableProvidersOrder(t *testing.T) {
	svc := NewLLMService(testLLMConfig(), nil)
	got := svc.AvailableProviders()
	if len(got) != 2 || got[0] != config.ProviderClaude || got[1] != config.ProviderGemini {
		t.Errorf("Expected [claude gemini], got %v", got)
	}
}
