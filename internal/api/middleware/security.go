package middleware

import (
	"net/http"

	"github.com/weatherlens/weatherlens/internal/api/models"
)

// ContentSecurityPolicy allows the page's own script and stylesheet, the
// provider's icon images and the inline theme background.
const ContentSecurityPolicy = "default-src 'none'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' https://openweathermap.org; form-action 'self'; base-uri 'none'; frame-ancestors 'none'"

// SecurityHeaders adds standard security headers to all HTTP responses.
// Geolocation stays available to the page itself.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", ContentSecurityPolicy)
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(self), camera=(), microphone=()")

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests that a load balancer reports as plain HTTP
// via X-Forwarded-Proto. Requests without the header pass. A disabled
// middleware passes everything.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewProblem(models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, GetRequestID(r.Context())).
					WithDetail("This endpoint requires HTTPS").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
