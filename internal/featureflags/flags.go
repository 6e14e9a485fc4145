// Package featureflags provides the runtime kill switches for remote advice
// and history recording.
package featureflags

import (
	"errors"
	"time"
)

// Known switch keys.
const (
	// FlagDisableRemoteAdvice serves fallback advice without calling the provider.
	FlagDisableRemoteAdvice = "disable_remote_advice"

	// FlagDisableHistoryRecording computes metrics without appending to history.
	FlagDisableHistoryRecording = "disable_history_recording"
)

// ErrUnknownFlag is returned when an update names a key with no Definition.
var ErrUnknownFlag = errors.New("unknown feature flag")

// Definition describes a switch the application understands.
type Definition struct {
	Key         string
	Description string
	Default     bool
}

// definitions is kept sorted by key.
var definitions = []Definition{
	{
		Key:         FlagDisableHistoryRecording,
		Description: "Compute results without appending them to the history.",
	},
	{
		Key:         FlagDisableRemoteAdvice,
		Description: "Serve the fixed fallback advice without calling the provider.",
	},
}

// Definitions returns every known switch, sorted by key.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// IsKnown reports whether key names a defined switch.
func IsKnown(key string) bool {
	_, ok := Lookup(key)
	return ok
}

// State is the persisted value of one switch.
type State struct {
	Key       string
	Enabled   bool
	UpdatedAt time.Time
	UpdatedBy string
	Reason    string
}

// Flag is a switch as reported to operators: its definition merged with
// the persisted state, if any.
type Flag struct {
	Key         string     `json:"key"`
	Enabled     bool       `json:"enabled"`
	Description string     `json:"description"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// Update sets one switch. Enabled is a pointer so an omitted value can be
// told apart from false.
type Update struct {
	Key     string `json:"key"`
	Enabled *bool  `json:"enabled"`
}

// UpdateRequest is the body of an operator flag change.
type UpdateRequest struct {
	Updates []Update `json:"updates"`
	Reason  string   `json:"reason"`
}

func flagFrom(def Definition, state *State) Flag {
	f := Flag{
		Key:         def.Key,
		Enabled:     def.Default,
		Description: def.Description,
	}
	if state != nil {
		updatedAt := state.UpdatedAt
		f.Enabled = state.Enabled
		f.UpdatedAt = &updatedAt
		f.UpdatedBy = state.UpdatedBy
		f.Reason = state.Reason
	}
	return f
}
