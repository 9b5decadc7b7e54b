package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows credentialed requests from the configured origins only. Session
// cookies never travel to a wildcard origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", CSRFHeaderName, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "HX-Redirect"},
		MaxAge:           3600,
		AllowCredentials: len(origins) > 0,
	})

	return handler.Handler
}
