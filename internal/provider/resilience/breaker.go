// Package resilience guards outbound provider calls with a circuit breaker
// and bounded retries, and keeps per-provider health for the ops endpoints.
package resilience

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker in front of one provider.
type BreakerConfig struct {
	// HalfOpenProbes is how many calls may pass while half-open. Default 1.
	HalfOpenProbes uint32

	// CoolDown is how long the breaker stays open before probing. Default 60s.
	CoolDown time.Duration

	// Window clears the closed-state counts periodically. Zero never clears.
	Window time.Duration

	// Trip decides when a closed breaker opens.
	// Nil means TripOnFailureRatio(5, 0.5).
	Trip func(counts gobreaker.Counts) bool
}

// DefaultBreakerConfig returns the breaker settings used for providers.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		HalfOpenProbes: 1,
		CoolDown:       60 * time.Second,
		Trip:           TripOnFailureRatio(5, 0.5),
	}
}

// TripOnFailureRatio opens the breaker once at least minRequests calls were
// counted and the share of failures reaches ratio.
func TripOnFailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		if c.Requests == 0 || c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= ratio
	}
}

// TripOnConsecutiveFailures opens the breaker after n failures in a row.
func TripOnConsecutiveFailures(n uint32) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		return c.ConsecutiveFailures >= n
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.HalfOpenProbes == 0 {
		c.HalfOpenProbes = def.HalfOpenProbes
	}
	if c.CoolDown <= 0 {
		c.CoolDown = def.CoolDown
	}
	if c.Trip == nil {
		c.Trip = def.Trip
	}
	return c
}

func newBreaker(name string, cfg BreakerConfig, onChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker[*http.Response] {
	cfg = cfg.withDefaults()
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.HalfOpenProbes,
		Interval:      cfg.Window,
		Timeout:       cfg.CoolDown,
		ReadyToTrip:   cfg.Trip,
		OnStateChange: onChange,
	})
}
