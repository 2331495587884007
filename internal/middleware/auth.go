package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pingline/pingline-api/internal/pkg/jwt"
	"github.com/pingline/pingline-api/internal/pkg/response"
)

type contextKey string

const (
	// UserIDKey holds the authenticated user id in the request context
	UserIDKey contextKey = "user_id"

	// AuthCookieName is the cookie carrying the access token for
	// browser clients that cannot set headers (e.g. websocket upgrade).
	AuthCookieName = "jwt"
)

// TokenFromRequest extracts a bearer token from the request. Priority:
// explicit "token" query param, Authorization header, auth cookie.
// Returns "" when no credential is present.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

// Auth returns middleware that validates the JWT and binds the user id
// into the request context.
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				response.Unauthorized(w, "Missing credentials")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				if err == jwt.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
