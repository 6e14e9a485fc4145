package middleware

import (
	"net/http"

	"github.com/prohealth/prohealth/internal/api/models"
)

// ProblemTypeTLSRequired identifies plain-HTTP requests rejected by RequireTLS.
const ProblemTypeTLSRequired = "https://prohealth.app/problems/tls-required"

// securityHeaders are sent on every response. The API serves JSON only, so
// nothing may be framed, sniffed or loaded from it.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), camera=(), microphone=()"},
}

// SecurityHeaders adds securityHeaders to the response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests that a load balancer marks as plain HTTP in
// X-Forwarded-Proto. Direct connections (no header) pass. A no-op unless
// required is set.
func RequireTLS(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); r.TLS == nil && proto != "" && proto != "https" {
				p := models.NewProblem(ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, GetRequestID(r.Context()))
				p.Detail = "This endpoint requires HTTPS"
				writeProblem(w, r, p)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
