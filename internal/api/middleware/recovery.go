package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/api/models"
)

// Recovery returns a middleware that recovers from panics and answers 500.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				models.NewInternalError(requestID, "an unexpected error occurred").
					WithInstance(r.URL.Path).
					Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
