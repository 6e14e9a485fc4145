package history

import "context"

// Storage is a key-value medium holding whole serialized values.
// Put must replace the stored value atomically.
type Storage interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
