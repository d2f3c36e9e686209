package config

import (
	"time"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

// loadRateLimitConfig covers prompt submissions, the only routes that reach
// the upstream endpoint.
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true",
		MaxHits: parseEnvInt("RATELIMIT_SUBMIT", 30), // 30 submissions per minute
		Window:  time.Minute,
	}
}
