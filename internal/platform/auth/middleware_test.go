package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func runJWT(t *testing.T, cfg JWTConfig, header string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	err := JWTMiddleware(cfg)(okHandler)(c)
	return c, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, tt.header)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "coder-42",
			Issuer:    "claimcoder",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleCoder},
	}, testSigningKey)

	c, err := runJWT(t, JWTConfig{SigningKey: testSigningKey, Issuer: "claimcoder"}, "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if got := UserIDFromContext(ctx); got != "coder-42" {
		t.Errorf("expected subject coder-42, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != RoleCoder {
		t.Errorf("expected coder role, got %v", roles)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	expired := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, testSigningKey)
	wrongKey := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, []byte("other-key"))
	wrongIssuer := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "u", Issuer: "someone-else",
	}}, testSigningKey)

	for name, token := range map[string]string{"expired": expired, "wrong key": wrongKey, "wrong issuer": wrongIssuer} {
		t.Run(name, func(t *testing.T) {
			_, err := runJWT(t, JWTConfig{SigningKey: testSigningKey, Issuer: "claimcoder"}, "Bearer "+token)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/health")

	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper})
	if err := mw(okHandler)(c); err != nil {
		t.Errorf("expected health check to skip auth, got %v", err)
	}
	if !IsPublicPath("/health/db") || IsPublicPath("/api/v1/coding/evaluate") {
		t.Error("unexpected public path set")
	}
}

func TestDevAuthMiddleware_GrantsAdmin(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var roles []string
	h := DevAuthMiddleware()(func(c echo.Context) error {
		roles = RolesFromContext(c.Request().Context())
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected admin role, got %v", roles)
	}
}
