package config

import "testing"

func TestEnabledTextProvidersPriorityOrder(t *testing.T) {
	cfg := testConfig()

	got := EnabledTextProviders(cfg)
	if len(got) != 2 || got[0] != ProviderClaude || got[1] != ProviderGemini {
		t.Errorf("Expected [claude gemini], got %v", got)
	}
}

func TestEnabledTextProvidersExcludesUncredentialed(t *testing.T) {
	cfg := testConfig()
	cfg.Claude.APIKey = ""

	got := EnabledTextProviders(cfg)
	if len(got) != 1 || got[0] != ProviderGemini {
		t.Errorf("Expected [gemini], got %v", got)
	}
}

func TestEnabledTextProvidersExcludesDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Gemini.Enabled = false

	got := EnabledTextProviders(cfg)
	if len(got) != 1 || got[0] != ProviderClaude {
		t.Errorf("Expected [claude], got %v", got)
	}
}

func TestEnabledServicesIncludesImageProvider(t *testing.T) {
	cfg := testConfig()

	got := EnabledServices(cfg)
	want := []string{ProviderClaude, ProviderGemini, ProviderStability}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// Every name returned by EnabledTextProviders must also appear in
// EnabledServices, for any combination of flags and credentials.
func TestEnabledServicesSupersetProperty(t *testing.T) {
	flags := []bool{true, false}
	keys := []string{"", "key"}

	for _, claudeEnabled := range flags {
		for _, claudeKey := range keys {
			for _, geminiEnabled := range flags {
				for _, geminiKey := range keys {
					cfg := testConfig()
					cfg.Claude.Enabled = claudeEnabled
					cfg.Claude.APIKey = claudeKey
					cfg.Gemini.Enabled = geminiEnabled
					cfg.Gemini.APIKey = geminiKey

					text := EnabledTextProviders(cfg)
					all := make(map[string]bool)
					for _, name := range EnabledServices(cfg) {
						all[name] = true
					}
					for _, name := range text {
						if !all[name] {
							t.Errorf("Provider %s in text list but not in services (claude=%v/%q gemini=%v/%q)",
								name, claudeEnabled, claudeKey, geminiEnabled, geminiKey)
						}
					}
				}
			}
		}
	}
}

func TestProviderSpecUsable(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		key     string
		usable  bool
	}{
		{"enabled with key", true, "k", true},
		{"enabled without key", true, "", false},
		{"disabled with key", false, "k", false},
		{"disabled without key", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProviderSpec{Name: "test", Enabled: tt.enabled, APIKey: tt.key}
			if p.Usable() != tt.usable {
				t.Errorf("Expected usable=%v", tt.usable)
			}
		})
	}
}
