package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pingline/pingline-api/internal/pkg/jwt"
)

func TestTokenFromRequest(t *testing.T) {
	t.Run("query param wins over header and cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
		r.Header.Set("Authorization", "Bearer from-header")
		r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "from-cookie"})

		if got := TokenFromRequest(r); got != "from-query" {
			t.Errorf("token = %q, want %q", got, "from-query")
		}
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer from-header")
		r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "from-cookie"})

		if got := TokenFromRequest(r); got != "from-header" {
			t.Errorf("token = %q, want %q", got, "from-header")
		}
	})

	t.Run("cookie as last resort", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "from-cookie"})

		if got := TokenFromRequest(r); got != "from-cookie" {
			t.Errorf("token = %q, want %q", got, "from-cookie")
		}
	})

	t.Run("malformed authorization header is ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic abc123")

		if got := TokenFromRequest(r); got != "" {
			t.Errorf("token = %q, want empty", got)
		}
	})

	t.Run("no credential", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if got := TokenFromRequest(r); got != "" {
			t.Errorf("token = %q, want empty", got)
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Minute, time.Hour)
	userID := uuid.New()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetUserID(r.Context()); got != userID {
			t.Errorf("context user id = %s, want %s", got, userID)
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes through", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(userID)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		Auth(jwtService)(next).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("missing credential is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		Auth(jwtService)(next).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()

		Auth(jwtService)(next).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
