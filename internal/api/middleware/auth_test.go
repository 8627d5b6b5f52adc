package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/meubles-dor/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminPassword = "correct-horse"

var adminHash = func() string {
	h, err := auth.HashPassword(adminPassword)
	if err != nil {
		panic(err)
	}
	return h
}()

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestAuthenticator() (*auth.Authenticator, *clock) {
	c := &clock{t: time.Now()}
	jwtService := auth.NewJWTService("test-secret-key", auth.DefaultSessionTTL, auth.DefaultRefreshWindow).WithClock(c.now)
	return auth.NewAuthenticator("admin@meubles.tn", adminHash, jwtService), c
}

func signIn(t *testing.T, a *auth.Authenticator) string {
	t.Helper()
	session, _, err := a.SignIn("admin@meubles.tn", adminPassword)
	require.NoError(t, err)
	return session.AccessToken
}

func capture(dst **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := GetUserFromContext(r.Context()); ok {
			*dst = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================
// Auth Middleware Tests
// ============================================

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	a, _ := newTestAuthenticator()
	token := signIn(t, a)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "admin@meubles.tn", captured.Email)
	assert.Equal(t, auth.RoleAdmin, captured.Role)
	assert.Empty(t, rec.Header().Get(RefreshedTokenHeader))
}

func TestAuthMiddleware_ValidToken_Cookie(t *testing.T) {
	a, _ := newTestAuthenticator()
	token := signIn(t, a)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()

	AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	a, _ := newTestAuthenticator()
	var captured *auth.Claims

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rec := httptest.NewRecorder()

	AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
	assert.Nil(t, captured)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	a, _ := newTestAuthenticator()
	var captured *auth.Claims

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()

	AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthMiddleware_SignedOutToken(t *testing.T) {
	a, _ := newTestAuthenticator()
	token := signIn(t, a)
	claims, err := a.Verify(token)
	require.NoError(t, err)
	a.SignOut(claims)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RefreshesNearExpiry(t *testing.T) {
	a, c := newTestAuthenticator()
	token := signIn(t, a)
	c.t = c.t.Add(29*24*time.Hour + 2*time.Hour)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	fresh := rec.Header().Get(RefreshedTokenHeader)
	require.NotEmpty(t, fresh)
	assert.NotEqual(t, token, fresh)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookie+"="+fresh)

	_, err := a.Verify(fresh)
	assert.NoError(t, err)
	_, err = a.Verify(token)
	assert.NoError(t, err)
}

func TestAuthMiddleware_SameTokenAcceptedAfterRefresh(t *testing.T) {
	a, c := newTestAuthenticator()
	token := signIn(t, a)
	c.t = c.t.Add(auth.DefaultSessionTTL - time.Hour)

	for i := 0; i < 2; i++ {
		var captured *auth.Claims
		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.NotEmpty(t, rec.Header().Get(RefreshedTokenHeader))
		require.NotNil(t, captured)
		assert.Equal(t, "admin@meubles.tn", captured.Email)
	}
}

func TestAuthMiddleware_CookieTakesPrecedence(t *testing.T) {
	a, _ := newTestAuthenticator()
	cookieToken := signIn(t, a)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookieToken})
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()

	AuthMiddleware(a)(capture(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================
// Require Role Middleware Tests
// ============================================

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"admin", &auth.Claims{Email: "admin@meubles.tn", Role: auth.RoleAdmin}, http.StatusOK},
		{"other role", &auth.Claims{Email: "x@meubles.tn", Role: "customer"}, http.StatusForbidden},
		{"no claims", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserContextKey, tt.claims))
			}
			rec := httptest.NewRecorder()

			RequireRole(auth.RoleAdmin)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetUserFromContext_NoClaims(t *testing.T) {
	result, ok := GetUserFromContext(context.Background())

	assert.False(t, ok)
	assert.Nil(t, result)
}
