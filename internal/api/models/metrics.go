package models

import (
	"github.com/prohealth/prohealth/internal/bodymetrics"
)

// ComputeRequest is the body of POST /v1/metrics:compute.
type ComputeRequest struct {
	bodymetrics.MeasurementInput

	// SessionID scopes stale-advice tracking to one client (optional).
	SessionID string `json:"sessionId,omitempty"`
}

// ComputeResponse is a computed result plus its history bookkeeping.
type ComputeResponse struct {
	bodymetrics.Result

	// EntryID is the history entry created for this result, if any.
	EntryID string `json:"entryId,omitempty"`

	// Recorded is false when history recording was skipped or failed.
	Recorded bool `json:"recorded"`
}

// FieldErrorsFrom converts engine validation errors to API field errors.
func FieldErrorsFrom(verr *bodymetrics.ValidationError) []FieldError {
	if verr == nil {
		return nil
	}
	out := make([]FieldError, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		out = append(out, FieldError{Field: fe.Field, Message: fe.Message, Code: "INVALID"})
	}
	return out
}
