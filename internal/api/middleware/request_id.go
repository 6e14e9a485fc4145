// Package middleware provides HTTP middleware for the ProHealth API.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// requestIDKey is the context key for the request ID.
type requestIDKey struct{}

// RequestIDHeader carries the request ID on requests and responses.
const RequestIDHeader = "X-Request-Id"

// validRequestID bounds what a client may supply as its own request ID.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_\-.]{1,64}$`)

// RequestID generates a unique request ID and adds it to the request context.
// A well-formed incoming X-Request-Id is kept; anything else is replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = newRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "req_" + id.String()
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
