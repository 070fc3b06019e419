package middleware

import (
	"log"
	"net/http"
	"slices"

	"agencyops/backend/config"
)

// EnableCORS creates a middleware that handles CORS headers for the
// configured origins. In development any origin is echoed back.
func EnableCORS(cfg *config.Config) func(http.Handler) http.Handler {
	allowedOrigins := cfg.CORS.AllowedOrigins
	development := cfg.IsDevelopment()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case isAllowedOrigin(origin, allowedOrigins):
				w.Header().Set("Access-Control-Allow-Origin", origin)
			case development && origin != "":
				log.Printf("Development mode: allowing origin %s", origin)
				w.Header().Set("Access-Control-Allow-Origin", origin)
			case len(allowedOrigins) > 0:
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
			}
			w.Header().Add("Vary", "Origin")

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization, X-Currency, X-Requested-With, Accept, Origin")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isAllowedOrigin checks if the provided origin is in the allowed list
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	return slices.Contains(allowedOrigins, origin)
}
