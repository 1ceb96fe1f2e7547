package models

// LLMResult is the outcome of a single text-generation call, including which
// model in the fallback chain actually served it.
type LLMResult struct {
	Success        bool    `json:"success"`
	Analysis       string  `json:"analysis,omitempty"`
	Provider       string  `json:"provider"`
	ModelUsed      string  `json:"model_used,omitempty"`
	ProcessingTime float64 `json:"processing_time"` // seconds
	Error          string  `json:"error,omitempty"`
}

// ProviderStatus is the per-provider health block returned by status endpoints
type ProviderStatus struct {
	Enabled          bool   `json:"enabled"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Available        bool   `json:"available"`
	WorkingModel     string `json:"working_model,omitempty"`
}

// ImageResult is the outcome of an image-generation call
type ImageResult struct {
	Success        bool    `json:"success"`
	ImageBase64    string  `json:"image_base64,omitempty"`
	Model          string  `json:"model,omitempty"`
	ProcessingTime float64 `json:"processing_time"`
	Error          string  `json:"error,omitempty"`
}
