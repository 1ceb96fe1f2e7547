package health

import "strings"

// quotaMarkers are substrings that indicate a rate/quota failure rather than a
// hard provider outage. Quota failures trigger cooldown instead of unhealthy.
var quotaMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"quota",
	"overloaded",
	"too many requests",
	"resource_exhausted",
}

// IsQuotaError reports whether an error message looks like a quota or
// rate-limit failure.
func IsQuotaError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
