package handler

import (
	"context"
	"net/http"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/api/response"
)

// AdviceService produces advice for a computed result. It never fails.
type AdviceService interface {
	RequestAdvice(ctx context.Context, req advice.Request) *advice.Advice
}

// AdviceHandler handles advice requests.
type AdviceHandler struct {
	service AdviceService
	tracker *advice.Tracker
}

// NewAdviceHandler creates a new AdviceHandler. tracker may be nil, in which
// case responses are never marked stale.
func NewAdviceHandler(service AdviceService, tracker *advice.Tracker) *AdviceHandler {
	return &AdviceHandler{service: service, tracker: tracker}
}

// Advise handles POST /v1/advice.
// Any provider failure yields fallback advice with status 200; only an
// unusable request body is rejected.
func (h *AdviceHandler) Advise(w http.ResponseWriter, r *http.Request) {
	var req models.AdviceRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "advice request is incomplete", errs)
		return
	}

	track := h.tracker != nil && req.SessionID != ""
	var ticket advice.Ticket
	if track {
		ticket = h.tracker.Begin(req.SessionID)
	}

	result := h.service.RequestAdvice(r.Context(), req.ToDomain())

	stale := track && !h.tracker.Finish(ticket)
	response.JSON(w, r, http.StatusOK, models.NewAdviceResponse(result, stale))
}
