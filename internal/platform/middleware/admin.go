package middleware

import (
	"context"
	"log/slog"
	"net/http"

	id "veritas/pkg/domain"
	"veritas/pkg/requestcontext"
)

// RoleResolver looks up the current role of a user. The admin gate re-checks
// the store rather than trusting the token's role claim, so a demoted admin
// loses access as soon as the record changes, not at token expiry.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID id.UserID) (string, error)
}

// RequireAdmin gates admin endpoints. Must run after RequireAuth.
func RequireAdmin(roles RoleResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			if userID.IsNil() {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			role, err := roles.ResolveRole(ctx, userID)
			if err != nil {
				logger.ErrorContext(ctx, "failed to resolve role",
					"error", err,
					"user_id", userID,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to resolve role")
				return
			}
			if role != "admin" {
				logger.WarnContext(ctx, "forbidden - admin access required",
					"user_id", userID,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
