package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/prohealth/prohealth/internal/api/middleware"
)

func newTestTracing(t *testing.T) (*tracetest.SpanRecorder, func(http.Handler) http.Handler) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return sr, middleware.Tracing(tp.Tracer("test"), propagation.TraceContext{})
}

func spanAttr(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_CreatesSpanNamedAfterRoute(t *testing.T) {
	sr, tracing := newTestTracing(t)

	r := chi.NewRouter()
	r.Use(tracing)
	r.Post("/v1/metrics:compute", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, trace.SpanFromContext(r.Context()).SpanContext().IsValid())
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/metrics:compute", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /v1/metrics:compute", spans[0].Name())
	route, ok := spanAttr(spans[0].Attributes(), "http.route")
	require.True(t, ok)
	assert.Equal(t, "/v1/metrics:compute", route.AsString())
}

func TestTracing_UnmatchedRoute(t *testing.T) {
	sr, tracing := newTestTracing(t)

	handler := tracing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET unmatched", spans[0].Name())
}

func TestTracing_PropagatesContext(t *testing.T) {
	sr, tracing := newTestTracing(t)

	handler := tracing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", spans[0].SpanContext().TraceID().String())
}

func TestTracing_RecordsStatusCode(t *testing.T) {
	sr, tracing := newTestTracing(t)

	handler := tracing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)

	status, ok := spanAttr(spans[0].Attributes(), "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(404), status.AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracing_MarksErrorOnServerError(t *testing.T) {
	sr, tracing := newTestTracing(t)

	handler := tracing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "Internal Server Error", spans[0].Status().Description)
}

func TestTracing_IncludesRequestID(t *testing.T) {
	sr, tracing := newTestTracing(t)

	handler := middleware.RequestID(tracing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	id, ok := spanAttr(spans[0].Attributes(), "request.id")
	require.True(t, ok)
	assert.Contains(t, id.AsString(), "req_")
}
