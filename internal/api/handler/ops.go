package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/api/response"
	"github.com/prohealth/prohealth/internal/featureflags"
	"github.com/prohealth/prohealth/internal/provider/resilience"
)

// readinessTimeout bounds each dependency check.
const readinessTimeout = 2 * time.Second

// DependencyCheck reports whether a backing dependency is reachable.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsHandlerConfig holds dependencies for OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string

	// Checks gate readiness; each one is a subsystem in the status report.
	Checks []DependencyCheck

	// Registry supplies provider circuit state (optional).
	Registry *resilience.Registry

	// Flags supplies active degradation flags (optional).
	Flags *featureflags.Service
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    []DependencyCheck
	registry  *resilience.Registry
	flags     *featureflags.Service
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		checks:    cfg.Checks,
		registry:  cfg.Registry,
		flags:     cfg.Flags,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Any failing dependency makes the
// instance unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	body := models.Health{Status: models.HealthStatusOK, Time: models.Timestamp(time.Now())}

	subsystems := h.runChecks(r.Context())
	body.Details = make(map[string]any, len(subsystems))
	for _, s := range subsystems {
		body.Details[s.Name] = s.Status
		body.Status = body.Status.Worse(s.Status)
	}

	code := http.StatusOK
	if body.Status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, body)
}

// SystemStatus handles GET /v1/ops/status - subsystem, provider and flag status.
// A failing subsystem is FAIL. An open circuit or an active degradation flag
// is only DEGRADED since advice still falls back.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.runChecks(r.Context()),
		Providers:  h.providerStatuses(),
	}
	if h.flags != nil {
		status.ActiveDegradationFlags = h.flags.Active(r.Context())
	}

	for _, s := range status.Subsystems {
		status.Status = status.Status.Worse(s.Status)
	}
	for _, p := range status.Providers {
		if p.Status != models.HealthStatusOK {
			status.Status = status.Status.Worse(models.HealthStatusDegraded)
		}
	}
	if len(status.ActiveDegradationFlags) > 0 {
		status.Status = status.Status.Worse(models.HealthStatusDegraded)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := c.Check(checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.registry.All()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		ps := models.ProviderStatus{
			Provider:      ph.Name,
			Status:        providerHealthStatus(ph),
			CircuitState:  ph.State.String(),
			Requests:      ph.Counts.Requests,
			Failures:      ph.Counts.TotalFailures,
			LastSuccessAt: optionalTimestamp(ph.LastSuccess),
			LastFailureAt: optionalTimestamp(ph.LastFailure),
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func providerHealthStatus(ph resilience.Health) models.HealthStatus {
	switch {
	case ph.Open():
		return models.HealthStatusFail
	case ph.Probing():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func optionalTimestamp(t time.Time) *models.Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := models.Timestamp(t)
	return &ts
}
