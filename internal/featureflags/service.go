package featureflags

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // default: 1 minute

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Service evaluates switches from a cached snapshot of the repository.
// A nil *Service reports every switch as off.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	states  map[string]State
	expires time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		ttl:    ttl,
		now:    now,
	}
}

// Enabled reports whether the switch key is on. Unknown keys are off.
func (s *Service) Enabled(ctx context.Context, key string) bool {
	if s == nil {
		return false
	}
	def, ok := Lookup(key)
	if !ok {
		return false
	}
	if state, ok := s.snapshot(ctx)[key]; ok {
		return state.Enabled
	}
	return def.Default
}

// IsRemoteAdviceDisabled reports whether advice must come from the fallback.
func (s *Service) IsRemoteAdviceDisabled(ctx context.Context) bool {
	return s.Enabled(ctx, FlagDisableRemoteAdvice)
}

// IsHistoryRecordingDisabled reports whether computed results must not be recorded.
func (s *Service) IsHistoryRecordingDisabled(ctx context.Context) bool {
	return s.Enabled(ctx, FlagDisableHistoryRecording)
}

// List returns every defined switch with its current state, sorted by key.
func (s *Service) List(ctx context.Context) []Flag {
	var states map[string]State
	if s != nil {
		states = s.snapshot(ctx)
	}

	out := make([]Flag, 0, len(definitions))
	for _, def := range definitions {
		if state, ok := states[def.Key]; ok {
			out = append(out, flagFrom(def, &state))
			continue
		}
		out = append(out, flagFrom(def, nil))
	}
	return out
}

// Active returns the keys of switches that are on, sorted.
func (s *Service) Active(ctx context.Context) []string {
	var keys []string
	for _, f := range s.List(ctx) {
		if f.Enabled {
			keys = append(keys, f.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Set applies updates on behalf of actor. Unknown keys are rejected before
// anything is written.
func (s *Service) Set(ctx context.Context, updates map[string]bool, actor, reason string) error {
	now := s.now()
	states := make([]State, 0, len(updates))
	for key, enabled := range updates {
		if !IsKnown(key) {
			return fmt.Errorf("%w: %s", ErrUnknownFlag, key)
		}
		states = append(states, State{
			Key:       key,
			Enabled:   enabled,
			UpdatedAt: now,
			UpdatedBy: actor,
			Reason:    reason,
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Key < states[j].Key })

	if err := s.repo.Upsert(ctx, states); err != nil {
		return fmt.Errorf("store feature flags: %w", err)
	}

	// Snapshots are shared with readers, so replace rather than mutate.
	s.mu.Lock()
	if s.states != nil {
		next := make(map[string]State, len(s.states)+len(states))
		for k, v := range s.states {
			next[k] = v
		}
		for _, st := range states {
			next[st.Key] = st
		}
		s.states = next
	}
	s.mu.Unlock()
	return nil
}

// InvalidateCache drops the snapshot so the next read goes to the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = nil
	s.expires = time.Time{}
}

// snapshot returns the cached states, reloading them once the TTL has
// passed. A failed reload keeps serving the previous snapshot (or the
// defaults) until the next TTL.
func (s *Service) snapshot(ctx context.Context) map[string]State {
	now := s.now()

	s.mu.RLock()
	if s.states != nil && now.Before(s.expires) {
		states := s.states
		s.mu.RUnlock()
		return states
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states != nil && now.Before(s.expires) {
		return s.states
	}

	list, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load feature flags, serving last known state")
		if s.states == nil {
			s.states = map[string]State{}
		}
		s.expires = now.Add(s.ttl)
		return s.states
	}

	states := make(map[string]State, len(list))
	for _, st := range list {
		states[st.Key] = st
	}
	s.states = states
	s.expires = now.Add(s.ttl)
	return states
}
