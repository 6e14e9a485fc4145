package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/bodymetrics"
)

// StoreConfig holds configuration for the history store.
type StoreConfig struct {
	// Storage persists the serialized history (required).
	Storage Storage

	// Logger for store operations.
	Logger zerolog.Logger

	// Key overrides StorageKey.
	Key string

	// MaxEntries overrides the default bound of 5.
	MaxEntries int

	// NewID generates entry identifiers (default: UUIDv7).
	NewID func() (string, error)
}

// Store is the newest-first result history. Every mutation rewrites the
// whole persisted value.
type Store struct {
	storage    Storage
	logger     zerolog.Logger
	key        string
	maxEntries int
	newID      func() (string, error)

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

// NewStore creates a history store over the given storage.
func NewStore(cfg StoreConfig) *Store {
	key := cfg.Key
	if key == "" {
		key = StorageKey
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = MaxEntries
	}

	newID := cfg.NewID
	if newID == nil {
		newID = newTimeOrderedID
	}

	return &Store{
		storage:    cfg.Storage,
		logger:     cfg.Logger,
		key:        key,
		maxEntries: maxEntries,
		newID:      newID,
	}
}

// Load reads the persisted history. An absent or malformed value yields an
// empty history; the failure is logged, never returned.
func (s *Store) Load(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked(ctx)
	return s.snapshotLocked()
}

// Entries returns the in-memory history, loading it first if needed.
func (s *Store) Entries(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loadLocked(ctx)
	}
	return s.snapshotLocked()
}

// Record prepends result, drops entries beyond the bound and replaces the
// persisted value. On a storage error the in-memory history is unchanged.
func (s *Store) Record(ctx context.Context, result *bodymetrics.Result) (*Entry, error) {
	if result == nil {
		return nil, errors.New("nil result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loadLocked(ctx)
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate entry id: %w", err)
	}

	entry := Entry{Result: *result, ID: id}

	updated := make([]Entry, 0, s.maxEntries)
	updated = append(updated, entry)
	updated = append(updated, s.entries...)
	if len(updated) > s.maxEntries {
		updated = updated[:s.maxEntries]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	if err := s.storage.Put(ctx, s.key, data); err != nil {
		return nil, fmt.Errorf("persist history: %w", err)
	}

	s.entries = updated

	s.logger.Debug().
		Str("entry_id", id).
		Int("entries", len(updated)).
		Msg("recorded history entry")

	return &entry, nil
}

// Clear empties the history and removes the persisted key entirely.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}

	s.entries = nil
	s.loaded = true

	s.logger.Debug().Msg("cleared history")
	return nil
}

func (s *Store) loadLocked(ctx context.Context) {
	s.entries = nil
	s.loaded = true

	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to read history, using empty history")
		}
		return
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("malformed history, using empty history")
		return
	}

	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}
	s.entries = entries
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func newTimeOrderedID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
