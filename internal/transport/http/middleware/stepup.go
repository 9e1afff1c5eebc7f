package middleware

import (
	"context"
	"net/http"
)

type StepUpChecker interface {
	IsAuthorized(ctx context.Context, sessionID string) bool
}

// RequireStepUp lets a request through only while the caller's session holds
// an unexpired step-up claim. Must run after Auth.
func RequireStepUp(checker StepUpChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !checker.IsAuthorized(r.Context(), claims.SessionID) {
				writeJSONError(w, http.StatusForbidden, "step-up required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
