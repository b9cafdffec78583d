// Package middleware holds the middleware specific to the JSON API
package middleware

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/mcoot/chiptourney/internal/api/apierr"
	"github.com/mcoot/chiptourney/internal/middleware"
)

// Recovery answers a panic with the standard JSON internal error
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// RequireJSON rejects request bodies that are not declared as JSON.
// Bodyless requests pass regardless of their Content-Type.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				apierr.WriteError(w, apierr.NewUnsupportedMediaTypeError())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
