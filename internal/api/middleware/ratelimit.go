package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/prohealth/prohealth/internal/api/models"
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
	// AdviceRateLimit applies to advice requests, which call the remote
	// model (10 req/min).
	AdviceRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// ComputeRateLimit applies to metric computation (60 req/min).
	ComputeRateLimit = RateLimitConfig{
		RequestLimit: 60,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to standard endpoints (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}

	// AdminRateLimit applies to the admin API (30 req/min).
	AdminRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware keyed by client IP.
// Uses X-Forwarded-For if present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded(cfg.WindowLength)),
	)
}

// RateLimitByAdmin creates a rate limiter keyed by the authenticated admin
// subject, falling back to the client IP. It must run after AdminAuth.
func RateLimitByAdmin(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByAdminOrIP),
		httprate.WithLimitHandler(rateLimitExceeded(cfg.WindowLength)),
	)
}

func keyByAdminOrIP(r *http.Request) (string, error) {
	if sub := GetAdminSubject(r.Context()); sub != "" {
		return "admin:" + sub, nil
	}
	return httprate.KeyByRealIP(r)
}

// rateLimitExceeded writes an RFC7807 problem. httprate does not expose the
// exact reset time, so Retry-After is the full window.
func rateLimitExceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(max(1, int(window.Seconds())))

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		writeProblem(w, r, models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later."))
	}
}
