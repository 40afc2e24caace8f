package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/windfall/speakcoach_service/pkg/response"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// AdminTokenHeader carries the operator token on admin routes.
const AdminTokenHeader = "X-Admin-Token"

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

// AdminChecker verifies the operator token.
type AdminChecker interface {
	CheckAdminToken(token string) bool
}

// Auth returns a middleware that validates JWT tokens from the Authorization header.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				response.Unauthorized(w, "invalid authorization format")
				return
			}

			userID, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// AdminOnly rejects requests without a valid X-Admin-Token header.
func AdminOnly(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AdminTokenHeader)
			if token == "" {
				response.Unauthorized(w, "missing admin token")
				return
			}
			if !checker.CheckAdminToken(token) {
				response.Forbidden(w, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
