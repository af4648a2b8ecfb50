package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/jwt"
	"github.com/secboard/api/pkg/logger"
)

// Auth-related context keys - use logger.ContextKey for consistency.
const (
	UserIDKey                   = logger.ContextKeyUserID
	RoleKey   logger.ContextKey = "role"
)

// GetUserID extracts the authenticated subject from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts the role claim from context.
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// IsAdmin reports whether the request carries the admin role.
func IsAdmin(ctx context.Context) bool {
	return GetRole(ctx) == jwt.RoleAdmin
}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Claims, error)
}

// Authenticate validates the Authorization bearer token and stores the
// subject and role in the request context.
func Authenticate(validator TokenValidator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				apierror.Unauthorized("Missing bearer token").WriteJSON(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				log.Warn("token validation failed",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				apierror.Unauthorized("Invalid or expired token").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose role claim is not one of the given
// roles. Must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			apierror.Forbidden("Insufficient role").WriteJSON(w)
		})
	}
}

// RequireAdmin rejects requests without the admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(jwt.RoleAdmin)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
