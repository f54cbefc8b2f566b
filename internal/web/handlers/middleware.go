package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/bintangula23/kindbox/internal/token"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// userIDKey stores the authenticated user's uid in request context.
const userIDKey contextKey = "userID"

// AuthMiddleware requires a valid Bearer session token and stores the
// caller's uid in the request context.
func AuthMiddleware(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				jsonError(w, "Missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				jsonError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated uid from request context.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDKey).(string)
	return uid, ok && uid != ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
