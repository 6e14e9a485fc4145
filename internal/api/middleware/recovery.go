package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/prohealth/prohealth/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem. A panic after the
// response has started is only logged. http.ErrAbortHandler is re-raised so
// the server aborts the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Str("path", r.URL.Path).
					Interface("panic", v).
					Bool("response_started", rec.wroteHeader).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if rec.wroteHeader {
					return
				}
				writeProblem(rec, r, models.NewInternalError(requestID, "an unexpected error occurred"))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
