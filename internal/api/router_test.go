package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/api"
	"github.com/prohealth/prohealth/internal/api/handler"
	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/auth"
	"github.com/prohealth/prohealth/internal/featureflags"
	"github.com/prohealth/prohealth/internal/history"
)

const computeBody = `{"unitSystem":"METRIC","ageYears":30,"gender":"MALE","heightCm":175,"weightKg":70}`

func newTestRouter(t *testing.T, mutate func(*api.RouterConfig)) *chi.Mux {
	t.Helper()
	cfg := api.RouterConfig{
		Version:   "test",
		BuildTime: "2026-01-01T00:00:00Z",
		Logger:    zerolog.Nop(),
		History: history.NewStore(history.StoreConfig{
			Storage: history.NewInMemoryStorage(),
			Logger:  zerolog.Nop(),
		}),
		FeatureFlags: featureflags.NewService(featureflags.ServiceConfig{
			Repository: featureflags.NewInMemoryRepository(),
			Logger:     zerolog.Nop(),
		}),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return api.NewRouter(cfg)
}

func do(router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodGet, "/v1/ops/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rec.Header().Get("X-Content-Type-Options"))

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessReflectsChecks(t *testing.T) {
	router := newTestRouter(t, func(cfg *api.RouterConfig) {
		cfg.ReadinessChecks = []handler.DependencyCheck{
			{Name: "history", Check: func(context.Context) error { return errors.New("database is locked") }},
		}
	})

	rec := do(router, http.MethodGet, "/v1/ops/ready", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_StatusIsPublic(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodGet, "/v1/ops/status", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
}

func TestRouter_ComputeThenHistory(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodPost, "/v1/metrics:compute", computeBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var computed models.ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &computed))
	assert.True(t, computed.Recorded)

	rec = do(router, http.MethodGet, "/v1/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list models.HistoryList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, computed.EntryID, list.Items[0].ID)
	assert.Equal(t, history.MaxEntries, list.MaxEntries)

	rec = do(router, http.MethodDelete, "/v1/history", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodGet, "/v1/history", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Items)
}

func TestRouter_ComputeValidationError(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodPost, "/v1/metrics:compute",
		`{"unitSystem":"METRIC","ageYears":30,"gender":"MALE","heightCm":0,"weightKg":70}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodPost, "/v1/metrics:compute", computeBody,
		map[string]string{"Content-Type": "text/plain"})

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_AdviceFallsBackWithoutProvider(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodPost, "/v1/advice",
		`{"bmi":22.9,"ageYears":30,"gender":"MALE","category":"Normal Weight","bmr":1673.75}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.AdviceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, advice.SourceFallback, resp.Source)
	assert.Len(t, resp.DietaryTips, 3)
}

func TestRouter_Metadata(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodGet, "/v1/metadata/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var legend models.CategoryLegend
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &legend))
	assert.Len(t, legend.Items, 4)

	rec = do(router, http.MethodGet, "/v1/metadata/defaults?unit=imperial", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/v1/metadata/defaults?unit=cubits", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodGet, "/v1/nonexistent", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AdminLockedWithoutTokenService(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(router, http.MethodGet, "/v1/admin/feature-flags", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminFeatureFlags(t *testing.T) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "router-test-signing-key-0123456789abcdef",
		Issuer:     "prohealth",
		Audience:   "prohealth-admin",
	})
	require.NoError(t, err)

	router := newTestRouter(t, func(cfg *api.RouterConfig) {
		cfg.Tokens = tokens
	})

	rec := do(router, http.MethodGet, "/v1/admin/feature-flags", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := tokens.IssueAdminToken("ops@prohealth.app")
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	rec = do(router, http.MethodPut, "/v1/admin/feature-flags",
		`{"updates":[{"key":"disable_history_recording","enabled":true}],"reason":"storage migration"}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Recording is now off for subsequent computes.
	rec = do(router, http.MethodPost, "/v1/metrics:compute", computeBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var computed models.ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &computed))
	assert.False(t, computed.Recorded)

	rec = do(router, http.MethodGet, "/v1/ops/status", "", nil)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	assert.Equal(t, []string{featureflags.FlagDisableHistoryRecording}, status.ActiveDegradationFlags)

	rec = do(router, http.MethodPost, "/v1/admin/feature-flags/invalidate", "", bearer)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_RequireTLS(t *testing.T) {
	router := newTestRouter(t, func(cfg *api.RouterConfig) {
		cfg.RequireTLS = true
	})

	rec := do(router, http.MethodGet, "/v1/ops/health", "", map[string]string{"X-Forwarded-Proto": "http"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodGet, "/v1/ops/health", "", map[string]string{"X-Forwarded-Proto": "https"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
