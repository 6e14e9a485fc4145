package models

import "github.com/prohealth/prohealth/internal/history"

// HistoryList is the newest-first result history.
type HistoryList struct {
	Items      []history.Entry `json:"items"`
	MaxEntries int             `json:"maxEntries"`
}
