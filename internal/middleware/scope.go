package middleware

import (
	"log/slog"
	"net/http"

	"github.com/productcatalog/catalog/internal/auth"
)

// RequireAdmin allows only authenticated admins through.
// Must be applied after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFromContext(r.Context())
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", unauthorizedMessage)
				return
			}

			if !identity.IsAdmin {
				logger.Warn("admin capability required",
					slog.Int64("user_id", identity.UserID),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin privileges required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
