package history

import (
	"context"
	"sync"
)

// InMemoryStorage is an in-memory implementation of Storage.
// This is intended for testing and ephemeral runs.
type InMemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewInMemoryStorage creates an empty in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (s *InMemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	cpy := make([]byte, len(v))
	copy(cpy, v)
	return cpy, nil
}

// Put replaces the value stored under key.
func (s *InMemoryStorage) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := make([]byte, len(value))
	copy(cpy, value)
	s.values[key] = cpy
	return nil
}

// Delete removes key.
func (s *InMemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Has reports whether key is present.
func (s *InMemoryStorage) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.values[key]
	return ok
}

// Ensure InMemoryStorage implements Storage interface.
var _ Storage = (*InMemoryStorage)(nil)
