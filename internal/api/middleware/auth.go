package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prohealth/prohealth/internal/api/models"
	"github.com/prohealth/prohealth/internal/auth"
)

// adminSubjectKey is the context key for the authenticated admin subject.
type adminSubjectKey struct{}

// TokenValidator validates admin bearer tokens.
type TokenValidator interface {
	ValidateAdminToken(token string) (*auth.Claims, error)
}

// AdminAuth creates middleware that requires a valid admin JWT bearer token.
// A nil validator rejects every request.
func AdminAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				writeUnauthorized(w, r, "admin access is not configured")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := validator.ValidateAdminToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, auth.ErrNotAdmin):
					writeForbidden(w, r, "admin role required")
				case errors.Is(err, auth.ErrInvalidToken):
					writeUnauthorized(w, r, "invalid access token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			ctx := context.WithValue(r.Context(), adminSubjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="prohealth-admin"`)
	writeProblem(w, r, models.NewUnauthorized(GetRequestID(r.Context()), detail))
}

func writeForbidden(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, models.NewForbidden(GetRequestID(r.Context()), detail))
}

// GetAdminSubject retrieves the authenticated admin subject from the context.
// Returns an empty string if the request was not admin-authenticated.
func GetAdminSubject(ctx context.Context) string {
	if sub, ok := ctx.Value(adminSubjectKey{}).(string); ok {
		return sub
	}
	return ""
}
