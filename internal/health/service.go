package health

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	defaultFailureThreshold = 3
	defaultCooldownDuration = 15 * time.Minute
)

// Service manages health tracking for all providers across capability types
type Service struct {
	mu               sync.RWMutex
	entries          map[string]*ProviderHealth // key: "capability:providerName"
	strategies       map[CapabilityType]CheckStrategy
	providerGetter   ProviderGetter
	failureThreshold int
	cooldownDuration time.Duration
}

// NewService creates a new health service
func NewService(providerGetter ProviderGetter, failureThreshold int, cooldownDuration time.Duration) *Service {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	if cooldownDuration <= 0 {
		cooldownDuration = defaultCooldownDuration
	}

	return &Service{
		entries:          make(map[string]*ProviderHealth),
		strategies:       make(map[CapabilityType]CheckStrategy),
		providerGetter:   providerGetter,
		failureThreshold: failureThreshold,
		cooldownDuration: cooldownDuration,
	}
}

func entryKey(capability CapabilityType, providerName string) string {
	return fmt.Sprintf("%s:%s", capability, providerName)
}

// RegisterStrategy registers an active check strategy for a capability type
func (s *Service) RegisterStrategy(strategy CheckStrategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[strategy.Capability()] = strategy
}

// RegisterProvider adds a provider to the health registry for a capability
func (s *Service) RegisterProvider(capability CapabilityType, providerName string, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey(capability, providerName)
	if _, exists := s.entries[key]; !exists {
		s.entries[key] = &ProviderHealth{
			ProviderName: providerName,
			Capability:   capability,
			Status:       StatusUnknown,
			Priority:     priority,
		}
		log.Printf("[HEALTH] Registered %s provider %s priority=%d", capability, providerName, priority)
	}
}

// HealthyProviders returns providers for a capability, ordered by priority,
// filtering out unhealthy and cooling-down entries
func (s *Service) HealthyProviders(capability CapabilityType) []ProviderHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var healthy []ProviderHealth

	for _, h := range s.entries {
		if h.Capability != capability {
			continue
		}
		switch h.Status {
		case StatusCooldown:
			if now.After(h.CooldownUntil) {
				healthy = append(healthy, *h) // cooldown expired
			}
		case StatusUnhealthy:
			continue
		default:
			healthy = append(healthy, *h) // healthy or unknown
		}
	}

	sort.Slice(healthy, func(i, j int) bool {
		if healthy[i].Priority != healthy[j].Priority {
			return healthy[i].Priority > healthy[j].Priority
		}
		return healthy[i].LastSuccessAt.After(healthy[j].LastSuccessAt)
	})

	return healthy
}

// AllProviders returns all registered providers across all capabilities
func (s *Service) AllProviders() []ProviderHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ProviderHealth, 0, len(s.entries))
	for _, h := range s.entries {
		result = append(result, *h)
	}
	return result
}

// IsHealthy checks if a provider is considered healthy for a capability
func (s *Service) IsHealthy(capability CapabilityType, providerName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.entries[entryKey(capability, providerName)]
	if !exists {
		return true // unregistered providers are assumed healthy
	}

	switch h.Status {
	case StatusUnhealthy:
		return false
	case StatusCooldown:
		return time.Now().After(h.CooldownUntil)
	default:
		return true
	}
}

// MarkHealthy marks a provider as healthy after a successful request
func (s *Service) MarkHealthy(capability CapabilityType, providerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.entries[entryKey(capability, providerName)]
	if !exists {
		return
	}

	wasUnhealthy := h.Status == StatusUnhealthy || h.Status == StatusCooldown
	h.Status = StatusHealthy
	h.FailureCount = 0
	h.LastError = ""
	h.LastSuccessAt = time.Now()
	h.LastChecked = time.Now()
	h.CooldownUntil = time.Time{}

	if wasUnhealthy {
		log.Printf("[HEALTH] %s provider %s recovered - now healthy", capability, providerName)
	}
}

// MarkUnhealthy records a failure. After reaching the threshold, the provider
// is marked unhealthy.
func (s *Service) MarkUnhealthy(capability CapabilityType, providerName, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.entries[entryKey(capability, providerName)]
	if !exists {
		return
	}

	h.FailureCount++
	h.LastError = errMsg
	h.LastChecked = time.Now()

	if h.FailureCount >= s.failureThreshold {
		h.Status = StatusUnhealthy
		log.Printf("[HEALTH] %s provider %s marked UNHEALTHY after %d failures: %s",
			capability, providerName, h.FailureCount, truncateStr(errMsg, 200))
	} else {
		log.Printf("[HEALTH] %s provider %s failure %d/%d: %s",
			capability, providerName, h.FailureCount, s.failureThreshold, truncateStr(errMsg, 200))
	}
}

// SetCooldown puts a provider into cooldown (typically after a quota error)
func (s *Service) SetCooldown(capability CapabilityType, providerName string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.entries[entryKey(capability, providerName)]
	if !exists {
		return
	}

	if duration <= 0 {
		duration = s.cooldownDuration
	}

	h.Status = StatusCooldown
	h.CooldownUntil = time.Now().Add(duration)
	h.LastChecked = time.Now()

	log.Printf("[HEALTH] %s provider %s in COOLDOWN until %s",
		capability, providerName, h.CooldownUntil.Format(time.RFC3339))
}

// CheckProvider performs an active health check using the registered strategy
func (s *Service) CheckProvider(capability CapabilityType, providerName string) error {
	s.mu.RLock()
	strategy, hasStrategy := s.strategies[capability]
	entry, exists := s.entries[entryKey(capability, providerName)]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("provider not registered: %s:%s", capability, providerName)
	}

	if !hasStrategy {
		// No strategy registered - just verify the provider is enabled
		provider, err := s.providerGetter(providerName)
		if err != nil {
			s.MarkUnhealthy(capability, providerName, fmt.Sprintf("provider lookup failed: %v", err))
			return err
		}
		if !provider.Enabled {
			s.MarkUnhealthy(capability, providerName, "provider disabled")
			return fmt.Errorf("provider %s is disabled", provider.Name)
		}
		s.MarkHealthy(capability, providerName)
		return nil
	}

	_, err := strategy.Check(entry, s.providerGetter)
	if err != nil {
		if IsQuotaError(err.Error()) {
			s.SetCooldown(capability, providerName, s.cooldownDuration)
		} else {
			s.MarkUnhealthy(capability, providerName, err.Error())
		}
		return err
	}

	s.MarkHealthy(capability, providerName)
	return nil
}

// CheckAll runs active checks across every registered entry and returns the
// per-provider outcome, keyed "capability:providerName".
func (s *Service) CheckAll() map[string]error {
	results := make(map[string]error)
	for _, h := range s.AllProviders() {
		results[entryKey(h.Capability, h.ProviderName)] = s.CheckProvider(h.Capability, h.ProviderName)
	}
	return results
}

// Summary returns a health status overview across all capabilities
func (s *Service) Summary() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	capStats := make(map[string]map[string]int)
	total := 0

	for _, h := range s.entries {
		capName := string(h.Capability)
		if capStats[capName] == nil {
			capStats[capName] = map[string]int{"healthy": 0, "unhealthy": 0, "cooldown": 0, "unknown": 0}
		}
		total++

		switch h.Status {
		case StatusHealthy:
			capStats[capName]["healthy"]++
		case StatusUnhealthy:
			capStats[capName]["unhealthy"]++
		case StatusCooldown:
			if time.Now().After(h.CooldownUntil) {
				capStats[capName]["unknown"]++
			} else {
				capStats[capName]["cooldown"]++
			}
		default:
			capStats[capName]["unknown"]++
		}
	}

	return map[string]interface{}{
		"total":        total,
		"capabilities": capStats,
	}
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
