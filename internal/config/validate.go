package config

import "fmt"

// Report is the result of a validation pass: an ordered list of
// human-readable issues and an overall pass flag. Reports are transient and
// recomputed on every call.
type Report struct {
	Issues []string `json:"issues"`
	OK     bool     `json:"ok"`
}

// Validate runs the configuration checklist against the snapshot. Every check
// is evaluated independently; none short-circuits the others. Validate never
// aborts; callers decide whether to proceed degraded or exit.
func Validate(cfg *Config) Report {
	var issues []string

	for _, p := range cfg.TextProviders() {
		if p.Enabled && p.APIKey == "" {
			issues = append(issues, fmt.Sprintf("%s API key missing but provider is enabled", p.Name))
		}
	}

	if !cfg.Claude.Enabled && !cfg.Gemini.Enabled {
		issues = append(issues, "no text-generation provider enabled")
	}

	if cfg.Stability.Enabled && cfg.Stability.APIKey == "" {
		issues = append(issues, fmt.Sprintf("%s API key missing but provider is enabled", cfg.Stability.Name))
	}

	if cfg.LLMTimeout < MinSafeTimeout {
		issues = append(issues, fmt.Sprintf("LLM timeout %ds below safe minimum of %ds", cfg.LLMTimeout, MinSafeTimeout))
	}

	return Report{Issues: issues, OK: len(issues) == 0}
}
