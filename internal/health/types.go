package health

import "time"

// CapabilityType identifies what kind of provider interaction a health entry covers
type CapabilityType string

const (
	CapabilityText  CapabilityType = "text"
	CapabilityImage CapabilityType = "image"
)

// Status represents the health state of a provider
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusCooldown  Status = "cooldown"
	StatusUnknown   Status = "unknown"
)

// ProviderHealth tracks the health of a single provider+capability combination
type ProviderHealth struct {
	ProviderName  string
	Capability    CapabilityType
	Status        Status
	LastChecked   time.Time
	LastSuccessAt time.Time
	FailureCount  int
	LastError     string
	CooldownUntil time.Time
	Priority      int // Higher = preferred
}

// ProviderInfo is a minimal provider representation used by health checks
// to avoid importing the config package
type ProviderInfo struct {
	Name    string
	APIKey  string
	Enabled bool
	Models  []string
}

// ProviderGetter retrieves provider info by name
type ProviderGetter func(name string) (*ProviderInfo, error)

// CheckStrategy is the interface for capability-specific active health checks
type CheckStrategy interface {
	// Check performs a lightweight health check for a registered provider entry.
	// Returns latency in milliseconds and any error encountered.
	Check(entry *ProviderHealth, getter ProviderGetter) (latencyMs int, err error)
	// Capability returns which capability type this strategy checks.
	Capability() CapabilityType
}
