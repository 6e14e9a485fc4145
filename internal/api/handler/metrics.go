// Package handler provides HTTP handlers for the ProHealth API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/api/middleware"
	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/api/response"
	"github.com/prohealth/prohealth/internal/bodymetrics"
	"github.com/prohealth/prohealth/internal/history"
)

// RecordingFlags reports whether history recording is switched off.
type RecordingFlags interface {
	IsHistoryRecordingDisabled(ctx context.Context) bool
}

// MetricsHandlerConfig holds dependencies for MetricsHandler.
type MetricsHandlerConfig struct {
	History *history.Store
	Flags   RecordingFlags
	Tracker *advice.Tracker
	Logger  zerolog.Logger

	// Now overrides the clock used to stamp results.
	Now func() time.Time
}

// MetricsHandler handles metric computation.
type MetricsHandler struct {
	history *history.Store
	flags   RecordingFlags
	tracker *advice.Tracker
	logger  zerolog.Logger
	now     func() time.Time
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(cfg MetricsHandlerConfig) *MetricsHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &MetricsHandler{
		history: cfg.History,
		flags:   cfg.Flags,
		tracker: cfg.Tracker,
		logger:  cfg.Logger,
		now:     now,
	}
}

// Compute handles POST /v1/metrics:compute.
// A valid input always yields 200; a history write failure only clears
// the recorded flag. Invalid input records nothing.
func (h *MetricsHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req models.ComputeRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	result, err := bodymetrics.Compute(req.MeasurementInput, h.now())
	if err != nil {
		var verr *bodymetrics.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, "measurements are missing or out of range", models.FieldErrorsFrom(verr))
			return
		}
		response.InternalError(w, r, "failed to compute metrics")
		return
	}

	// Advice still in flight for this session describes the previous result.
	if req.SessionID != "" && h.tracker != nil {
		h.tracker.Invalidate(req.SessionID)
	}

	resp := models.ComputeResponse{Result: *result}

	switch {
	case h.history == nil:
	case h.flags != nil && h.flags.IsHistoryRecordingDisabled(r.Context()):
		h.logger.Debug().Msg("history recording disabled by flag")
	default:
		entry, err := h.history.Record(r.Context(), result)
		if err != nil {
			h.logger.Error().
				Err(err).
				Str("request_id", middleware.GetRequestID(r.Context())).
				Msg("failed to record history entry")
			break
		}
		resp.EntryID = entry.ID
		resp.Recorded = true
	}

	response.JSON(w, r, http.StatusOK, resp)
}
