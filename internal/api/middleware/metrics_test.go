package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/prohealth/prohealth/internal/api/middleware"
)

func newTestMetrics(t *testing.T) (*middleware.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := middleware.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return metrics, reader
}

func requestTotals(t *testing.T, reader *sdkmetric.ManualReader) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http.server.request.total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				return sum.DataPoints
			}
		}
	}
	return nil
}

func TestNewMetrics_GlobalMeter(t *testing.T) {
	metrics, err := middleware.NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	for _, path := range []string{"/v1/items/1", "/v1/items/2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	points := requestTotals(t, reader)
	require.Len(t, points, 1)
	assert.Equal(t, int64(2), points[0].Value)
	route, _ := points[0].Attributes.Value("http.route")
	assert.Equal(t, "/v1/items/{id}", route.AsString())
}

func TestMetrics_ErrorTypeOnlyForServerErrors(t *testing.T) {
	tests := []struct {
		status    int
		errorType string
	}{
		{http.StatusBadRequest, ""},
		{http.StatusServiceUnavailable, "503"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			metrics, reader := newTestMetrics(t)

			handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/advice", http.NoBody))

			points := requestTotals(t, reader)
			require.Len(t, points, 1)
			status, _ := points[0].Attributes.Value("http.response.status_code")
			assert.Equal(t, int64(tt.status), status.AsInt64())

			errType, ok := points[0].Attributes.Value("error.type")
			if tt.errorType == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.errorType, errType.AsString())
		})
	}
}

func TestMetrics_DefaultStatusCode(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("response"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	points := requestTotals(t, reader)
	require.Len(t, points, 1)
	status, _ := points[0].Attributes.Value("http.response.status_code")
	assert.Equal(t, int64(200), status.AsInt64())
}
