package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/weatherlens/weatherlens/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// LookupRateLimit applies to routes that call the weather provider
	// (two provider calls per request). 30 req/min.
	LookupRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// AdminRateLimit applies to the admin endpoints (10 req/min).
	AdminRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter keyed by the client IP (as set by
// chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded(cfg.WindowLength)),
	)
}

// rateLimitExceeded writes an RFC7807 problem. httprate does not expose the
// exact reset time, so Retry-After is the full window.
func rateLimitExceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
			WithInstance(r.URL.Path).
			Write(w)
	}
}
