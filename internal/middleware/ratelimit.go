package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP) for all API endpoints
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Analysis limits (per IP). Each analyze request fans out to two LLM
	// providers, so this tier is much tighter than the global one.
	AnalyzeMax        int
	AnalyzeExpiration time.Duration

	// Admin operation limits (per IP) for destructive endpoints like reset
	AdminMax        int
	AdminExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 120/min = 2 req/sec, generous for normal browsing
		GlobalAPIMax:        120,
		GlobalAPIExpiration: 1 * time.Minute,

		// Analysis: 10/min, each request costs real provider quota
		AnalyzeMax:        10,
		AnalyzeExpiration: 1 * time.Minute,

		// Admin: 5/min
		AdminMax:        5,
		AdminExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_GLOBAL_API"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.GlobalAPIMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_ANALYZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AnalyzeMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_ADMIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AdminMax = n
		}
	}

	if os.Getenv("APP_ENV") == "development" {
		config.GlobalAPIMax = 1000
		config.AnalyzeMax = 100
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
		SkipFailedRequests:     false,
		SkipSuccessfulRequests: false,
	})
}

// AnalyzeRateLimiter protects the LLM-backed analysis endpoint
func AnalyzeRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.AnalyzeMax,
		Expiration: config.AnalyzeExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "analyze:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Analysis limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Analysis rate limit reached. Please wait before asking another question.",
				"retry_after": int(config.AnalyzeExpiration.Seconds()),
			})
		},
	})
}

// AdminRateLimiter protects destructive admin endpoints
func AdminRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.AdminMax,
		Expiration: config.AdminExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "admin:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Admin limit reached for IP: %s on %s", c.IP(), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many admin requests.",
				"retry_after": int(config.AdminExpiration.Seconds()),
			})
		},
	})
}
