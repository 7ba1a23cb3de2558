package ratelimit

import (
	"golang.org/x/time/rate"
)

// Config holds client-side request pacing configuration
type Config struct {
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
}

// DefaultConfig returns the default pacing configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// NewLimiter creates a token bucket limiter for the config.
// A non-positive rate disables pacing.
func NewLimiter(config Config) *rate.Limiter {
	if config.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
}
