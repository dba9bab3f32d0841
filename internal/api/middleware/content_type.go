package middleware

import (
	"mime"
	"net/http"

	"github.com/weatherlens/weatherlens/internal/api/models"
)

// ContentTypeJSON sets the Content-Type header to application/json unless
// the handler sets its own.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects POST, PUT and PATCH bodies that declare a content
// type other than application/json.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
					models.NewProblem(models.ProblemTypeUnsupportedMedia, "Unsupported media type",
						http.StatusUnsupportedMediaType, GetRequestID(r.Context())).
						WithDetail("Content-Type must be application/json").
						WithInstance(r.URL.Path).
						Write(w)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
