package featureflags

import (
	"context"
	"sync"
)

// Repository persists switch states.
type Repository interface {
	// List returns every stored state. Keys never written are absent.
	List(ctx context.Context) ([]State, error)

	// Upsert writes all states or none.
	Upsert(ctx context.Context, states []State) error
}

// InMemoryRepository is an in-memory Repository, used when no database is
// configured and in tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository(initial ...State) *InMemoryRepository {
	r := &InMemoryRepository{states: make(map[string]State, len(initial))}
	for _, s := range initial {
		r.states[s.Key] = s
	}
	return r
}

// List returns every stored state.
func (r *InMemoryRepository) List(_ context.Context) ([]State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]State, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s)
	}
	return out, nil
}

// Upsert stores states, replacing any with the same key.
func (r *InMemoryRepository) Upsert(_ context.Context, states []State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range states {
		r.states[s.Key] = s
	}
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
