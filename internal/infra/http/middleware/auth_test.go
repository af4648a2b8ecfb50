package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/jwt"
	"github.com/secboard/api/pkg/logger"
)

func authTestGenerator() *jwt.Generator {
	return jwt.NewGenerator(jwt.TokenConfig{
		Secret:         "test-secret",
		Issuer:         "secboard-test",
		AccessTokenTTL: time.Hour,
	})
}

func okHandler(captured *context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = r.Context()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateValidToken(t *testing.T) {
	gen := authTestGenerator()
	token, _, err := gen.GenerateAccessToken("alice", jwt.RoleUploader)
	require.NoError(t, err)

	var ctx context.Context
	mw := Authenticate(gen, logger.NewDevelopment())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw(okHandler(&ctx)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", GetUserID(ctx))
	assert.Equal(t, jwt.RoleUploader, GetRole(ctx))
	assert.False(t, IsAdmin(ctx))
}

func TestAuthenticateAdminRole(t *testing.T) {
	gen := authTestGenerator()
	token, _, err := gen.GenerateAccessToken("root", jwt.RoleAdmin)
	require.NoError(t, err)

	var ctx context.Context
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Authenticate(gen, logger.NewDevelopment())(okHandler(&ctx)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, IsAdmin(ctx))
}

func TestAuthenticateMissingToken(t *testing.T) {
	mw := Authenticate(authTestGenerator(), logger.NewDevelopment())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	mw := Authenticate(authTestGenerator(), logger.NewDevelopment())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	mw(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	mw := Authenticate(authTestGenerator(), logger.NewDevelopment())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	mw(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	mw := RequireAdmin()

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), RoleKey, jwt.RoleAdmin))
		rec := httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("viewer is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), RoleKey, jwt.RoleViewer))
		rec := httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("anonymous is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
