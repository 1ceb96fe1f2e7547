package config

import (
	"strings"
	"testing"
)

func testConfig() *Config {
	return &Config{
		Claude:        ProviderSpec{Name: ProviderClaude, APIKey: "claude-key", Enabled: true, Models: defaultClaudeModels},
		Gemini:        ProviderSpec{Name: ProviderGemini, APIKey: "gemini-key", Enabled: true, Models: defaultGeminiModels},
		Stability:     ProviderSpec{Name: ProviderStability, APIKey: "stability-key", Enabled: true, Models: defaultStabilityModels},
		LLMTimeout:    30,
		LLMMaxRetries: 3,
	}
}

func countIssues(report Report, substr string) int {
	n := 0
	for _, issue := range report.Issues {
		if strings.Contains(issue, substr) {
			n++
		}
	}
	return n
}

func TestValidateCleanConfig(t *testing.T) {
	report := Validate(testConfig())
	if !report.OK {
		t.Errorf("Expected clean config to pass, issues: %v", report.Issues)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Expected no issues, got %v", report.Issues)
	}
}

func TestValidateMissingCredential(t *testing.T) {
	cfg := testConfig()
	cfg.Claude.APIKey = ""

	report := Validate(cfg)
	if report.OK {
		t.Error("Expected validation failure")
	}
	if countIssues(report, "claude") != 1 {
		t.Errorf("Expected exactly one claude issue, got %v", report.Issues)
	}
}

func TestValidateDisabledProviderNeedsNoCredential(t *testing.T) {
	cfg := testConfig()
	cfg.Gemini.Enabled = false
	cfg.Gemini.APIKey = ""

	report := Validate(cfg)
	if !report.OK {
		t.Errorf("Disabled provider without key should not be an issue: %v", report.Issues)
	}
}

func TestValidateNoTextProviders(t *testing.T) {
	cfg := testConfig()
	cfg.Claude.Enabled = false
	cfg.Gemini.Enabled = false

	report := Validate(cfg)
	if report.OK {
		t.Error("Expected validation failure")
	}
	if countIssues(report, "no text-generation provider") != 1 {
		t.Errorf("Expected no-provider issue, got %v", report.Issues)
	}
	if providers := EnabledTextProviders(cfg); len(providers) != 0 {
		t.Errorf("Expected no enabled text providers, got %v", providers)
	}
}

func TestValidateTimeoutBoundary(t *testing.T) {
	cfg := testConfig()

	cfg.LLMTimeout = 5
	if report := Validate(cfg); !report.OK {
		t.Errorf("Timeout of exactly 5s should pass, issues: %v", report.Issues)
	}

	cfg.LLMTimeout = 4
	report := Validate(cfg)
	if report.OK {
		t.Error("Timeout of 4s should fail validation")
	}
	if countIssues(report, "timeout") != 1 {
		t.Errorf("Expected one timeout issue, got %v", report.Issues)
	}
}

func TestValidateIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.Claude.APIKey = ""
	cfg.LLMTimeout = 2

	first := Validate(cfg)
	second := Validate(cfg)

	if len(first.Issues) != len(second.Issues) || first.OK != second.OK {
		t.Fatalf("Reports differ: %v vs %v", first, second)
	}
	for i := range first.Issues {
		if first.Issues[i] != second.Issues[i] {
			t.Errorf("Issue %d differs: %q vs %q", i, first.Issues[i], second.Issues[i])
		}
	}
}

// Scenario: claude enabled+credentialed, gemini disabled, image provider
// enabled without credential, timeout 30.
func TestValidateScenarioImageCredentialOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Gemini.Enabled = false
	cfg.Stability.APIKey = ""

	report := Validate(cfg)
	if report.OK {
		t.Error("Expected validation failure")
	}
	if len(report.Issues) != 1 {
		t.Fatalf("Expected exactly one issue, got %v", report.Issues)
	}
	if countIssues(report, ProviderStability) != 1 {
		t.Errorf("Expected stability_ai issue, got %v", report.Issues)
	}

	if got := EnabledTextProviders(cfg); len(got) != 1 || got[0] != ProviderClaude {
		t.Errorf("Expected [claude], got %v", got)
	}
	if got := EnabledServices(cfg); len(got) != 1 || got[0] != ProviderClaude {
		t.Errorf("Expected [claude], got %v", got)
	}
}

// Scenario: both text providers usable, image provider disabled, timeout 3.
func TestValidateScenarioUnsafeTimeoutOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Stability.Enabled = false
	cfg.Stability.APIKey = ""
	cfg.LLMTimeout = 3

	report := Validate(cfg)
	if report.OK {
		t.Error("Expected validation failure")
	}
	if len(report.Issues) != 1 {
		t.Fatalf("Expected exactly one issue (unsafe timeout), got %v", report.Issues)
	}
	if countIssues(report, "timeout") != 1 {
		t.Errorf("Expected timeout issue, got %v", report.Issues)
	}

	got := EnabledServices(cfg)
	want := []string{ProviderClaude, ProviderGemini}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
