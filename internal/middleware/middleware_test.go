package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/config"
	"storefront/internal/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type mwOKResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, claims jwt.MapClaims, signingMethod jwt.SigningMethod) string {
	t.Helper()

	if _, ok := claims["exp"]; !ok {
		claims["exp"] = 9999999999
	}
	token := jwt.NewWithClaims(signingMethod, claims)

	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, method string, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func echoIdentity(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserIDKey).(int64)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: userID, Role: role})
}

// =====================
// AuthJWT
// =====================

func TestMiddleware_AuthJWT_Unauthorized(t *testing.T) {
	const secret = "test-secret"

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "bad scheme", header: "Token abc.def.ghi"},
		{name: "empty token", header: "Bearer  "},
		{name: "bad signature", header: "Bearer " + mustMakeJWT(t, "wrong-secret", jwt.MapClaims{"sub": 1}, jwt.SigningMethodHS256)},
		{name: "wrong alg", header: "Bearer " + mustMakeJWT(t, secret, jwt.MapClaims{"sub": 1}, jwt.SigningMethodHS512)},
		{name: "expired", header: "Bearer " + mustMakeJWT(t, secret, jwt.MapClaims{"sub": 1, "exp": 1}, jwt.SigningMethodHS256)},
		{name: "no subject", header: "Bearer " + mustMakeJWT(t, secret, jwt.MapClaims{"role": "USER"}, jwt.SigningMethodHS256)},
		{name: "non numeric subject", header: "Bearer " + mustMakeJWT(t, secret, jwt.MapClaims{"sub": "abc"}, jwt.SigningMethodHS256)},
		{name: "non string role", header: "Bearer " + mustMakeJWT(t, secret, jwt.MapClaims{"sub": 1, "role": 5}, jwt.SigningMethodHS256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", echoIdentity, middleware.AuthJWT(config.Config{JWTSecret: secret}))

			rec := runRequest(t, e, http.MethodGet, "/protected", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			body := decodeMWError(t, rec)
			assert.Equal(t, "unauthorized", body.Error)
			assert.Equal(t, "unauthorized", body.Kind)
		})
	}
}

// 正常：ctxに値が入る
func TestMiddleware_AuthJWT_Success_SetsContext(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	raw := mustMakeJWT(t, cfg.JWTSecret, jwt.MapClaims{"sub": 123, "role": "admin"}, jwt.SigningMethodHS256)
	e.GET("/protected", echoIdentity, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	require.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(123), body.UserID)
	assert.Equal(t, "ADMIN", body.Role)
}

// user_id クレーム（sub無し）と role 省略
func TestMiddleware_AuthJWT_UserIDClaimDefaultsToUserRole(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	raw := mustMakeJWT(t, cfg.JWTSecret, jwt.MapClaims{"user_id": "42", "token_type": "access"}, jwt.SigningMethodHS256)
	e.GET("/protected", echoIdentity, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "bearer "+raw)
	require.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, middleware.RoleUser, body.Role)
}

// =====================
// AdminRoleGuard
// =====================

func TestMiddleware_AdminRoleGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}

	newEcho := func() *echo.Echo {
		e := echo.New()
		e.GET("/admin", echoIdentity, middleware.AuthJWT(cfg), middleware.AdminRoleGuard())
		return e
	}

	t.Run("user is forbidden", func(t *testing.T) {
		raw := mustMakeJWT(t, cfg.JWTSecret, jwt.MapClaims{"sub": 1, "role": "USER"}, jwt.SigningMethodHS256)
		rec := runRequest(t, newEcho(), http.MethodGet, "/admin", "Bearer "+raw)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		body := decodeMWError(t, rec)
		assert.Equal(t, "admin only", body.Error)
		assert.Equal(t, "forbidden", body.Kind)
	})

	t.Run("admin passes", func(t *testing.T) {
		raw := mustMakeJWT(t, cfg.JWTSecret, jwt.MapClaims{"sub": 1, "role": "ADMIN"}, jwt.SigningMethodHS256)
		rec := runRequest(t, newEcho(), http.MethodGet, "/admin", "Bearer "+raw)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("guard without auth", func(t *testing.T) {
		e := echo.New()
		e.GET("/admin", echoIdentity, middleware.AdminRoleGuard())
		rec := runRequest(t, e, http.MethodGet, "/admin", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// =====================
// RequestLogger
// =====================

func TestMiddleware_RequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	e.Use(middleware.RequestLogger(log))
	e.GET("/ok/:id", func(c echo.Context) error {
		c.Set(middleware.CtxUserIDKey, int64(9))
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("kaboom")
	})

	rec := runRequest(t, e, http.MethodGet, "/ok/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "/ok/:id", line["path"])
	assert.Equal(t, float64(204), line["status"])
	assert.Equal(t, float64(9), line["user_id"])

	buf.Reset()
	rec = runRequest(t, e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	line = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "kaboom", line["error"])
}
