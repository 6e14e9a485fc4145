package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/api/middleware"
	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/api/response"
	"github.com/prohealth/prohealth/internal/history"
)

// HistoryHandler handles the result history.
type HistoryHandler struct {
	store  *history.Store
	logger zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(store *history.Store, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logger}
}

// List handles GET /v1/history - newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.HistoryList{
		Items:      h.store.Entries(r.Context()),
		MaxEntries: history.MaxEntries,
	})
}

// Clear handles DELETE /v1/history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("failed to clear history")
		response.InternalError(w, r, "failed to clear history")
		return
	}
	response.NoContent(w, r)
}
