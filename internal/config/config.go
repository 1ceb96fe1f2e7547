package config

import (
	"os"
	"strconv"
	"strings"
)

// Provider name identifiers used across the registry, health tracking and
// the dashboard status endpoint.
const (
	ProviderClaude    = "claude"
	ProviderGemini    = "gemini"
	ProviderStability = "stability_ai"
)

const (
	defaultLLMTimeout    = 30 // seconds
	defaultLLMMaxRetries = 3
	defaultDatabasePath  = "property_intelligence.db"

	// MinSafeTimeout is the floor below which LLM requests are flagged by the
	// validator. The configured value is still used as-is.
	MinSafeTimeout = 5
)

// ProviderSpec describes a single external AI provider.
type ProviderSpec struct {
	Name    string
	APIKey  string
	Enabled bool
	Models  []string // priority order, first = most preferred
}

// Usable reports whether the provider may be dispatched to: it must be both
// enabled and credentialed.
func (p ProviderSpec) Usable() bool {
	return p.Enabled && p.APIKey != ""
}

// RSSSource describes a property news feed and the keywords that make an
// article relevant to it.
type RSSSource struct {
	Name     string
	URL      string
	Keywords []string
}

// Config is an immutable snapshot of all integration settings, read once from
// the environment at process start. It is passed to components by reference
// and never mutated afterward; re-reading the environment requires a fresh
// Load, not in-place mutation.
type Config struct {
	Port        string
	Environment string // APP_ENV, "development" relaxes CORS

	Claude    ProviderSpec
	Gemini    ProviderSpec
	Stability ProviderSpec

	LLMTimeout    int // seconds
	LLMMaxRetries int

	DatabasePath string
	RedisURL     string

	AllowedOrigins  []string
	PresetQuestions []string
	RSSSources      []RSSSource
}

// TextProviders returns the text-generation providers in fixed dispatch
// priority order. The order is part of the contract: claude before gemini.
func (c *Config) TextProviders() []ProviderSpec {
	return []ProviderSpec{c.Claude, c.Gemini}
}

var defaultClaudeModels = []string{
	"claude-3-5-sonnet-20241022",
	"claude-3-haiku-20240307",
	"claude-3-sonnet-20240229",
}

var defaultGeminiModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-pro",
}

var defaultStabilityModels = []string{
	"stable-diffusion-xl-1024-v1-0",
}

var defaultOrigins = []string{
	"https://curam-ai.com.au",
	"https://curam-ai.com.au/python-hub/",
	"https://curam-ai.com.au/python-hub-v2/",
	"https://curam-ai.com.au/ai-intelligence/",
	"http://localhost:3000",
	"http://localhost:8000",
}

var defaultPresetQuestions = []string{
	"What new development applications were submitted in Brisbane this month?",
	"Which Brisbane suburbs are trending in property news?",
	"Are there any major infrastructure projects affecting property values?",
	"What zoning changes have been approved recently?",
	"Which areas have the most development activity?",
}

var defaultRSSSources = []RSSSource{
	{
		Name:     "Brisbane City Council",
		URL:      "https://www.brisbane.qld.gov.au/about-council/news-media/news/rss",
		Keywords: []string{"development", "planning", "infrastructure", "property", "zoning"},
	},
}

// Load builds the configuration snapshot from environment variables with
// defaults. Malformed values silently keep their defaults; Load never fails.
//
// When APP_ENV is "development" a wildcard entry is appended to
// AllowedOrigins. This deliberately disables origin checks for local frontend
// work and must never be set in production.
func Load() *Config {
	env := strings.ToLower(getEnv("APP_ENV", ""))

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: env,

		Claude: ProviderSpec{
			Name:    ProviderClaude,
			APIKey:  strings.TrimSpace(os.Getenv("CLAUDE_API_KEY")),
			Enabled: getFlagEnv("CLAUDE_ENABLED", true),
			Models:  getListEnv("CLAUDE_MODELS", defaultClaudeModels),
		},
		Gemini: ProviderSpec{
			Name:    ProviderGemini,
			APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Enabled: getFlagEnv("GEMINI_ENABLED", true),
			Models:  getListEnv("GEMINI_MODELS", defaultGeminiModels),
		},
		Stability: ProviderSpec{
			Name:    ProviderStability,
			APIKey:  strings.TrimSpace(os.Getenv("STABILITY_API_KEY")),
			Enabled: getFlagEnv("STABILITY_ENABLED", true),
			Models:  getListEnv("STABILITY_MODELS", defaultStabilityModels),
		},

		LLMTimeout:    getIntEnv("LLM_TIMEOUT", defaultLLMTimeout),
		LLMMaxRetries: getIntEnv("LLM_MAX_RETRIES", defaultLLMMaxRetries),

		DatabasePath: getEnv("DATABASE_PATH", defaultDatabasePath),
		RedisURL:     getEnv("REDIS_URL", ""),

		AllowedOrigins:  append([]string(nil), defaultOrigins...),
		PresetQuestions: append([]string(nil), defaultPresetQuestions...),
		RSSSources:      append([]RSSSource(nil), defaultRSSSources...),
	}

	if env == "development" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, "*")
	}

	return cfg
}

// offTokens are the accepted "off" values for feature flags. Any other
// non-empty value counts as on; absence keeps the default. Parsing is
// centralized here so every flag shares one truthiness rule.
var offTokens = map[string]bool{
	"false":    true,
	"0":        true,
	"off":      true,
	"no":       true,
	"disabled": true,
}

func getFlagEnv(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return !offTokens[strings.ToLower(value)]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var result []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return result
}
