package resilience

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Health is a point-in-time view of one provider.
type Health struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts

	// Zero times mean "never".
	LastSuccess  time.Time
	LastFailure  time.Time
	StateChanged time.Time
	LastError    string
}

// Open reports whether calls are currently refused.
func (h Health) Open() bool { return h.State == gobreaker.StateOpen }

// Probing reports whether the breaker is letting trial calls through.
func (h Health) Probing() bool { return h.State == gobreaker.StateHalfOpen }

// Registry keeps the providers' clients and their latest outcomes.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	client       *Client
	lastSuccess  time.Time
	lastFailure  time.Time
	stateChanged time.Time
	lastError    string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry), now: time.Now}
}

func (r *Registry) track(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[c.Name()] = &entry{client: c}
}

// Observe records the outcome of a call; a nil err is a success.
// Unknown providers are ignored.
func (r *Registry) Observe(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	if err == nil {
		e.lastSuccess = r.now()
		return
	}
	e.lastFailure = r.now()
	e.lastError = failureReason(err)
}

// failureReason describes err without the request URL, which may carry
// credentials or user data.
func failureReason(err error) string {
	var ue *url.Error
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return ErrCircuitOpen.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &ue):
		if ue.Timeout() {
			return "timeout"
		}
		return "transport: " + ue.Err.Error()
	default:
		return err.Error()
	}
}

func (r *Registry) stateChanged(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.stateChanged = r.now()
	}
}

// Health returns the named provider's health.
func (r *Registry) Health(name string) (Health, bool) {
	r.mu.RLock()
	e, ok := r.entries[name]
	var snap entry
	if ok {
		snap = *e
	}
	r.mu.RUnlock()

	if !ok {
		return Health{}, false
	}
	return snap.health(name), true
}

// All returns every provider's health ordered by name.
func (r *Registry) All() []Health {
	r.mu.RLock()
	snaps := make(map[string]entry, len(r.entries))
	for name, e := range r.entries {
		snaps[name] = *e
	}
	r.mu.RUnlock()

	// Breaker state is read after releasing the registry lock: the breaker
	// calls stateChanged while holding its own lock.
	out := make([]Health, 0, len(snaps))
	for name, snap := range snaps {
		out = append(out, snap.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e entry) health(name string) Health {
	return Health{
		Name:         name,
		State:        e.client.State(),
		Counts:       e.client.Counts(),
		LastSuccess:  e.lastSuccess,
		LastFailure:  e.lastFailure,
		StateChanged: e.stateChanged,
		LastError:    e.lastError,
	}
}
