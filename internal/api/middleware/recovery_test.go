package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/prohealth/prohealth/internal/api/middleware"
)

func TestRecovery_WritesProblem(t *testing.T) {
	var buf bytes.Buffer

	handler := middleware.RequestID(middleware.Recovery(zerolog.New(&buf))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}),
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/metrics:compute", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "internal-error")
	assert.Contains(t, rec.Body.String(), "/v1/metrics:compute")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "boom")
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	handler := middleware.Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	})
}

func TestRecovery_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.Recovery(zerolog.Nop())(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery_PanicAfterWriteOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
	assert.Contains(t, buf.String(), `"response_started":true`)
}
