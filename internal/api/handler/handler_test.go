package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/history"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newRequest(method, target, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, target, http.NoBody)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	return decode[models.Problem](t, rec)
}

func newHistoryStore(storage history.Storage) *history.Store {
	return history.NewStore(history.StoreConfig{Storage: storage, Logger: zerolog.Nop()})
}

type staticRecordingFlags bool

func (f staticRecordingFlags) IsHistoryRecordingDisabled(context.Context) bool { return bool(f) }
