package middleware

import (
	"net/http"
	"slices"

	"kuickmart/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin lets only administrators through
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole answers 403 unless the authenticated caller holds one of
// allowedRoles. It must run after AuthMiddleware.
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := GetUserRole(r.Context())
			if slices.Contains(allowedRoles, role) {
				next.ServeHTTP(w, r)
				return
			}

			userID, _ := GetUserID(r.Context())
			logger.Warn("Forbidden",
				zap.String("user_id", userID.String()),
				zap.String("role", role),
				zap.Strings("allowed_roles", allowedRoles),
				zap.String("path", r.URL.Path),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}
