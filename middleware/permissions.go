package middleware

import (
	"net/http"

	"agencyops/backend/models"
	"agencyops/backend/services"
)

// RequireRole is a middleware that lets a request through when the caller's
// role is one of roles. The role comes from AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserIDFromContext(r) == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized: No user ID found")
				return
			}

			if !services.HasAnyRole(GetUserRoleFromContext(r), roles...) {
				writeJSONError(w, http.StatusForbidden, "Forbidden: Insufficient role privileges")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireMinimumRole is a middleware that ensures the user has at least the
// specified role in the hierarchy
func RequireMinimumRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserIDFromContext(r) == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized: No user ID found")
				return
			}

			if !services.IsRoleAtLeast(GetUserRoleFromContext(r), requiredRole) {
				writeJSONError(w, http.StatusForbidden, "Forbidden: Insufficient role privileges")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a middleware that ensures the user is an admin
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)
}
