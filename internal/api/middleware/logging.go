package middleware

import (
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger logs one line per request once the handler returns.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, elapsed := serve(next, w, r)

			event := log.WithLevel(levelForStatus(rec.statusCode)).
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", rec.statusCode).
				Int64("bytes", rec.written).
				Dur("duration", elapsed).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				event = event.
					Str("trace_id", sc.TraceID().String()).
					Str("span_id", sc.SpanID().String())
			}

			event.Msg("request completed")
		})
	}
}

// levelForStatus logs 5xx as errors and 4xx as warnings.
func levelForStatus(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
