package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/huddleapp/huddle/internal/auth"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthMiddleware verifies bearer tokens on authenticated endpoints.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates an auth middleware with the signing secret.
func NewAuthMiddleware(secret []byte) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// RequireAuth rejects requests without a valid bearer token and puts the
// caller's user id into the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			jsonError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			jsonError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
			return
		}

		claims, err := auth.ValidateToken(m.secret, tokenString)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if claims.UserID == "" {
			jsonError(w, http.StatusUnauthorized, "token has no subject")
			return
		}

		recordCaller(r.Context(), claims.UserID)
		ctx := context.WithValue(r.Context(), userContextKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// UserFromContext retrieves the authenticated user id from the request
// context, "" when unauthenticated.
func UserFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userContextKey).(string)
	return userID
}
