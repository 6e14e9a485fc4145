// Package history keeps a bounded, newest-first log of computed results.
package history

import (
	"errors"

	"github.com/prohealth/prohealth/internal/bodymetrics"
)

// Storage errors.
var (
	// ErrKeyNotFound is returned by Storage.Get when the key is absent.
	ErrKeyNotFound = errors.New("storage key not found")
)

const (
	// StorageKey is the fixed key the history is persisted under.
	StorageKey = "bmi_history"

	// MaxEntries is the number of most recent results kept.
	MaxEntries = 5
)

// Entry is a computed result with a unique, time-ordered identifier.
type Entry struct {
	bodymetrics.Result
	ID string `json:"id"`
}
