package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/parley/cmd/parley/config"
)

func setupTestAuthMiddleware(t *testing.T, enabled bool) *AuthMiddleware {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	cfg := config.AuthConfig{
		Enabled: enabled,
		Secret:  "test-secret",
	}
	return NewAuthMiddleware(cfg, logger, "/healthz")
}

func echoUserHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if wantUser != "" {
			assert.True(t, ok)
			assert.Equal(t, wantUser, user)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewAuthMiddleware(t *testing.T) {
	middleware := setupTestAuthMiddleware(t, true)
	assert.NotNil(t, middleware)
	assert.True(t, middleware.config.Enabled)
	assert.Contains(t, middleware.skip, "/healthz")
}

func TestAuthMiddleware_Handler(t *testing.T) {
	middleware := setupTestAuthMiddleware(t, true)

	t.Run("successful authentication", func(t *testing.T) {
		token, err := CreateToken("test-secret", "testuser", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware.Handler(echoUserHandler(t, "testuser")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("skip path bypass", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		middleware.Handler(echoUserHandler(t, "")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		disabled := setupTestAuthMiddleware(t, false)
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
		rec := httptest.NewRecorder()

		disabled.Handler(echoUserHandler(t, "")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
		rec := httptest.NewRecorder()

		middleware.Handler(echoUserHandler(t, "")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("invalid authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		middleware.Handler(echoUserHandler(t, "")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := CreateToken("test-secret", "testuser", -time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware.Handler(echoUserHandler(t, "")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := CreateToken("other-secret", "testuser", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware.Handler(echoUserHandler(t, "")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without subject", func(t *testing.T) {
		claims := jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware.Handler(echoUserHandler(t, "")).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetUser(t *testing.T) {
	_, ok := GetUser(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), contextKeyUser, "testuser")
	user, ok := GetUser(ctx)
	assert.True(t, ok)
	assert.Equal(t, "testuser", user)
}
