package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/weatherlens/weatherlens/internal/api/models"
	"github.com/weatherlens/weatherlens/internal/auth"
)

type subjectKey struct{}

// Admin returns a middleware that requires a valid admin bearer token.
// A nil token service rejects every request.
func Admin(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				writeUnauthorized(w, r, "admin access is not configured")
				return
			}

			header := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := tokens.Validate(header[len(bearerPrefix):])
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeUnauthorized(w, r, "token has expired")
				case errors.Is(err, auth.ErrForbidden):
					models.NewForbidden(GetRequestID(r.Context()), "admin role required").
						WithInstance(r.URL.Path).
						Write(w)
				default:
					writeUnauthorized(w, r, "invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="weatherlens-admin"`)
	models.NewUnauthorized(GetRequestID(r.Context()), detail).
		WithInstance(r.URL.Path).
		Write(w)
}

// GetSubject returns the authenticated admin subject, or "".
func GetSubject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}
