package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/api/response"
	"github.com/prohealth/prohealth/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.List(r.Context())})
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
// Every update names a known switch and an explicit enabled value; the
// reason is stored with the change.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.UpdateRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	if errs := validateFlagUpdates(&req); len(errs) > 0 {
		response.BadRequest(w, r, "invalid feature flag update", errs)
		return
	}

	updates := make(map[string]bool, len(req.Updates))
	keys := make([]string, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates[u.Key] = *u.Enabled
		keys = append(keys, u.Key)
	}

	admin := AdminSubject(r.Context())
	reason := strings.TrimSpace(req.Reason)
	if err := h.service.Set(r.Context(), updates, admin, reason); err != nil {
		h.logger.Error().Err(err).Strs("keys", keys).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	h.logger.Info().
		Str("admin", admin).
		Strs("keys", keys).
		Str("reason", reason).
		Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.List(r.Context())})
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	h.logger.Info().Str("admin", AdminSubject(r.Context())).Msg("feature flag cache invalidated")
	response.NoContent(w, r)
}

func validateFlagUpdates(req *featureflags.UpdateRequest) []models.FieldError {
	var errs []models.FieldError
	if len(req.Updates) == 0 {
		errs = append(errs, models.FieldError{Field: "updates", Message: "at least one update is required", Code: "REQUIRED"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		errs = append(errs, models.FieldError{Field: "reason", Message: "required", Code: "REQUIRED"})
	}

	seen := make(map[string]bool, len(req.Updates))
	for i, u := range req.Updates {
		field := fmt.Sprintf("updates[%d]", i)
		switch {
		case !featureflags.IsKnown(u.Key):
			errs = append(errs, models.FieldError{Field: field + ".key", Message: "unknown feature flag", Code: "INVALID"})
		case seen[u.Key]:
			errs = append(errs, models.FieldError{Field: field + ".key", Message: "duplicate feature flag", Code: "INVALID"})
		}
		seen[u.Key] = true

		if u.Enabled == nil {
			errs = append(errs, models.FieldError{Field: field + ".enabled", Message: "required", Code: "REQUIRED"})
		}
	}
	return errs
}
