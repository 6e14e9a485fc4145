package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusRecorder captures the status code and body size of a response.
// Nested middlewares share one recorder.
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// serve runs next behind a recorder and reports how long it took.
func serve(next http.Handler, w http.ResponseWriter, r *http.Request) (*statusRecorder, time.Duration) {
	start := time.Now()
	rec := newStatusRecorder(w)
	next.ServeHTTP(rec, r)
	return rec, time.Since(start)
}

// routePattern returns the matched chi route, or "unmatched" outside a
// router or for 404s. It is only meaningful after the handler has run.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
