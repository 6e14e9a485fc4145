package handler

import (
	"net/http"
	"strings"

	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/api/response"
	"github.com/prohealth/prohealth/internal/bodymetrics"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// Categories handles GET /v1/metadata/categories - the BMI legend.
func (h *MetadataHandler) Categories(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.CategoryLegend{Items: bodymetrics.Categories()})
}

// Defaults handles GET /v1/metadata/defaults?unit=METRIC|IMPERIAL.
// The unit defaults to METRIC and is case-insensitive.
func (h *MetadataHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	unit := bodymetrics.UnitMetric
	if raw := r.URL.Query().Get("unit"); raw != "" {
		unit = bodymetrics.UnitSystem(strings.ToUpper(raw))
	}
	if !unit.Valid() {
		response.BadRequest(w, r, "unknown unit system", []models.FieldError{
			{Field: "unit", Message: "must be METRIC or IMPERIAL", Code: "INVALID"},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Defaults{Input: bodymetrics.DefaultInput(unit)})
}
