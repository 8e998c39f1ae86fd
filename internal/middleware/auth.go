package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/jobmatch/jobmatch-portal/internal/crypto"
	"github.com/jobmatch/jobmatch-portal/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// Revoked reports whether the token with the given ID has been revoked.
type Revoked func(tokenID string) bool

// JWTAuth validates the Bearer token and stores its claims in the request
// context. Errors use the {"detail": ...} body the marketplace API uses.
func JWTAuth(secret string, revoked Revoked) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || token == "" {
				writeDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			claims, err := crypto.ValidateToken(token, secret)
			if err != nil || (revoked != nil && revoked(claims.ID)) {
				writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated users whose role is not in roles.
// It must run after JWTAuth.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				writeDetail(w, http.StatusForbidden, "Not enough permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the claims stored by JWTAuth.
func ClaimsFromContext(ctx context.Context) (*crypto.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*crypto.Claims)
	return c, ok
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
