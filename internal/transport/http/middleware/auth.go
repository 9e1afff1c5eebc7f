package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-idp-security/internal/domain"
	jwtinfra "github.com/go-idp-security/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// SessionChecker confirms the session behind a token is still live.
type SessionChecker interface {
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Auth validates the Bearer JWT, rejects tokens whose session was revoked,
// and injects the claims into the request context.
func Auth(verifier TokenVerifier, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if _, err := sessions.GetCurrent(r.Context(), claims.SessionID); err != nil {
				writeJSONError(w, http.StatusUnauthorized, "session ended")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

// WithClaims returns ctx carrying claims, as Auth would leave it.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
