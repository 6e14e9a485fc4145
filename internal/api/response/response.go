// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prohealth/prohealth/internal/api/middleware"
	"github.com/prohealth/prohealth/internal/api/models"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 64 << 10

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
// A value that cannot be encoded becomes a 500 problem instead of a
// status line with an empty body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	var body []byte
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			InternalError(w, r, "failed to encode response")
			return
		}
		body = append(b, '\n')
	}

	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set(middleware.RequestIDHeader, requestID)
	}
}

// Decode reads a single JSON object from the request body into v. Unknown
// fields, trailing data and bodies over MaxBodyBytes are rejected.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("request body is required")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is required")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}

	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}
