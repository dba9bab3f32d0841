package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weatherlens/weatherlens/internal/api/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, middleware.ContentSecurityPolicy, rec.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeaders_PageCanUseGeolocationAndIcons(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Contains(t, rec.Header().Get("Permissions-Policy"), "geolocation=(self)")
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "img-src 'self' https://openweathermap.org")
	assert.Contains(t, csp, "script-src 'self'")
	assert.NotContains(t, csp, "script-src 'self' 'unsafe-inline'")
}

func TestSecurityHeaders_PreservesExistingHeaders(t *testing.T) {
	handler := middleware.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRequireTLS(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		proto   string
		want    int
	}{
		{"disabled allows http", false, "http", http.StatusOK},
		{"enabled rejects http", true, "http", http.StatusForbidden},
		{"enabled allows https", true, "https", http.StatusOK},
		{"enabled allows direct connections", true, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/search?city=Oslo", http.NoBody)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			rec := httptest.NewRecorder()

			middleware.RequireTLS(tt.enabled)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), "TLS required")
				assert.Contains(t, rec.Body.String(), "This endpoint requires HTTPS")
			}
		})
	}
}
