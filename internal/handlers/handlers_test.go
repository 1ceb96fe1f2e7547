package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"propintel/internal/config"
	"propintel/internal/database"
	"propintel/internal/health"
	"propintel/internal/models"
	"propintel/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Claude:          config.ProviderSpec{Name: config.ProviderClaude, APIKey: "k", Enabled: true, Models: []string{"claude-test"}},
		Gemini:          config.ProviderSpec{Name: config.ProviderGemini, APIKey: "k", Enabled: true, Models: []string{"gemini-test"}},
		Stability:       config.ProviderSpec{Name: config.ProviderStability, Enabled: false},
		LLMTimeout:      10,
		LLMMaxRetries:   0,
		PresetQuestions: []string{"Which Brisbane suburbs are growing?"},
	}
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	return db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp, parsed
}

func TestIndex(t *testing.T) {
	app := fiber.New()
	app.Get("/", Index)

	resp, body := doJSON(t, app, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["service"] != "Brisbane Property Intelligence" {
		t.Errorf("Unexpected service name: %v", body["service"])
	}
}

func TestHealthBasic(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, nil, nil, nil, "instance-1")
	app := fiber.New()
	app.Get("/health", handler.Basic)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
	if body["providers"].(float64) != 2 {
		t.Errorf("Expected 2 usable providers, got %v", body["providers"])
	}
	if body["instance"] != "instance-1" {
		t.Errorf("Expected instance id in response, got %v", body["instance"])
	}
}

func TestHealthDeepWithoutDependencies(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, nil, nil, nil, "")
	app := fiber.New()
	app.Get("/health/deep", handler.Deep)

	resp, body := doJSON(t, app, http.MethodGet, "/health/deep", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	components := body["components"].(map[string]interface{})
	db := components["database"].(map[string]interface{})
	if db["status"] != "unavailable" {
		t.Errorf("Expected unavailable database, got %v", db["status"])
	}
	redis := components["redis"].(map[string]interface{})
	if redis["status"] != "not_configured" {
		t.Errorf("Expected not_configured redis, got %v", redis["status"])
	}
}

// recordingCheck counts how many times the deep health endpoint probes it
type recordingCheck struct {
	capability health.CapabilityType
	calls      int
	err        error
}

func (r *recordingCheck) Capability() health.CapabilityType { return r.capability }

func (r *recordingCheck) Check(entry *health.ProviderHealth, getter health.ProviderGetter) (int, error) {
	r.calls++
	return 1, r.err
}

func TestHealthDeepRunsActiveChecks(t *testing.T) {
	getter := func(name string) (*health.ProviderInfo, error) {
		return &health.ProviderInfo{Name: name, APIKey: "k", Enabled: true, Models: []string{"m"}}, nil
	}
	svc := health.NewService(getter, 3, time.Minute)
	check := &recordingCheck{capability: health.CapabilityText}
	svc.RegisterStrategy(check)
	svc.RegisterProvider(health.CapabilityText, "claude", 1)

	handler := NewHealthHandler(testConfig(), nil, nil, nil, svc, "")
	app := fiber.New()
	app.Get("/health/deep", handler.Deep)

	resp, body := doJSON(t, app, http.MethodGet, "/health/deep", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if check.calls == 0 {
		t.Fatal("Deep health must invoke the registered active check strategy")
	}

	components := body["components"].(map[string]interface{})
	providers := components["providers"].(map[string]interface{})
	checks := providers["checks"].(map[string]interface{})
	claude := checks["text:claude"].(map[string]interface{})
	if claude["status"] != "healthy" {
		t.Errorf("Expected healthy check outcome, got %v", claude["status"])
	}

	check.err = fmt.Errorf("provider down")
	_, body = doJSON(t, app, http.MethodGet, "/health/deep", nil)
	checks = body["components"].(map[string]interface{})["providers"].(map[string]interface{})["checks"].(map[string]interface{})
	claude = checks["text:claude"].(map[string]interface{})
	if claude["status"] != "unhealthy" || claude["error"] == "" {
		t.Errorf("Expected unhealthy outcome with error, got %v", claude)
	}
	if check.calls != 2 {
		t.Errorf("Expected one probe per request, got %d calls", check.calls)
	}
}

func TestConfigStatus(t *testing.T) {
	cfg := testConfig()
	cfg.Gemini.APIKey = "" // misconfigured: enabled without key

	report := config.Validate(cfg)
	llm := services.NewLLMService(cfg, nil)
	stability := services.NewStabilityService(cfg, nil)

	handler := NewConfigHandler(cfg, report, llm, stability)
	app := fiber.New()
	app.Get("/api/config/status", handler.Status)

	resp, body := doJSON(t, app, http.MethodGet, "/api/config/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	if body["config_ok"].(bool) {
		t.Error("Expected config_ok=false with a misconfigured provider")
	}
	if len(body["issues"].([]interface{})) == 0 {
		t.Error("Expected validation issues")
	}

	providers := body["providers"].(map[string]interface{})
	gemini := providers["gemini"].(map[string]interface{})
	if gemini["available"].(bool) {
		t.Error("Keyless gemini should not be available")
	}
	if _, ok := providers["stability_ai"]; !ok {
		t.Error("Expected stability_ai provider block")
	}
}

func TestPropertyQuestions(t *testing.T) {
	cfg := testConfig()
	property := services.NewPropertyService(cfg, services.NewLLMService(cfg, nil), nil, nil, nil)
	handler := NewPropertyHandler(property, services.NewAnalyticsService(cfg, nil, nil), nil)

	app := fiber.New()
	app.Get("/api/property/questions", handler.Questions)

	resp, body := doJSON(t, app, http.MethodGet, "/api/property/questions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if len(body["questions"].([]interface{})) != 1 {
		t.Errorf("Expected 1 preset question, got %v", body["questions"])
	}
}

func TestAnalyzeValidation(t *testing.T) {
	cfg := testConfig()
	property := services.NewPropertyService(cfg, services.NewLLMService(cfg, nil), nil, nil, nil)
	handler := NewPropertyHandler(property, services.NewAnalyticsService(cfg, nil, nil), nil)

	app := fiber.New()
	app.Post("/api/property/analyze", handler.Analyze)

	resp, body := doJSON(t, app, http.MethodPost, "/api/property/analyze", models.AnalyzeRequest{Question: ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty question, got %d", resp.StatusCode)
	}
	if body["error"] == "" {
		t.Error("Expected error message")
	}
}

func TestAnalyzeDegradedPipeline(t *testing.T) {
	cfg := testConfig()
	cfg.Claude.Enabled = false
	cfg.Gemini.Enabled = false

	property := services.NewPropertyService(cfg, services.NewLLMService(cfg, nil), nil, nil, nil)
	handler := NewPropertyHandler(property, services.NewAnalyticsService(cfg, nil, nil), nil)

	app := fiber.New()
	app.Post("/api/property/analyze", handler.Analyze)

	resp, body := doJSON(t, app, http.MethodPost, "/api/property/analyze",
		models.AnalyzeRequest{Question: "What are the market trends?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Degraded pipeline must still answer, got %d", resp.StatusCode)
	}
	if body["success"].(bool) {
		t.Error("Expected success=false with no providers")
	}
	if body["final_answer"] == "" {
		t.Error("Expected a fallback answer")
	}
}

func TestHistoryAndReset(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.StoreQuery("q1", "a1", "general", 1.0, true); err != nil {
		t.Fatalf("StoreQuery failed: %v", err)
	}

	cfg := testConfig()
	property := services.NewPropertyService(cfg, services.NewLLMService(cfg, nil), nil, db, nil)
	handler := NewPropertyHandler(property, services.NewAnalyticsService(cfg, db, nil), db)

	app := fiber.New()
	app.Get("/api/property/history", handler.History)
	app.Post("/api/property/reset", handler.Reset)

	resp, body := doJSON(t, app, http.MethodGet, "/api/property/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["count"].(float64) != 1 {
		t.Errorf("Expected 1 history record, got %v", body["count"])
	}

	resp, body = doJSON(t, app, http.MethodPost, "/api/property/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["deleted"].(float64) != 1 {
		t.Errorf("Expected 1 deleted record, got %v", body["deleted"])
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/property/history", nil)
	if body["count"].(float64) != 0 {
		t.Errorf("Expected empty history after reset, got %v", body["count"])
	}
}

func TestHistoryUnavailableWithoutDB(t *testing.T) {
	cfg := testConfig()
	property := services.NewPropertyService(cfg, services.NewLLMService(cfg, nil), nil, nil, nil)
	handler := NewPropertyHandler(property, services.NewAnalyticsService(cfg, nil, nil), nil)

	app := fiber.New()
	app.Get("/api/property/history", handler.History)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/property/history", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a database, got %d", resp.StatusCode)
	}
}

func TestVisualizeUnavailableWhenDisabled(t *testing.T) {
	cfg := testConfig() // stability disabled
	handler := NewImageHandler(services.NewStabilityService(cfg, nil))

	app := fiber.New()
	app.Post("/api/property/visualize", handler.Visualize)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/property/visualize",
		map[string]string{"prompt": "Brisbane riverside apartments"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with image provider disabled, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/property/visualize", map[string]string{"prompt": " "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank prompt, got %d", resp.StatusCode)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", defaultHistoryLimit},
		{"abc", defaultHistoryLimit},
		{"-5", defaultHistoryLimit},
		{"50", 50},
		{"99999", maxHistoryLimit},
	}

	for _, tt := range tests {
		if got := parseLimit(tt.raw, defaultHistoryLimit); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
