package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsvirk/misbarapi/internal/api/middleware"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/token"
)

const secret = "middleware-test-secret"

type fakeDenylist struct {
	revoked map[string]bool
	err     error
}

func (d *fakeDenylist) Revoke(_ context.Context, id string, _ time.Time) error {
	d.revoked[id] = true
	return nil
}

func (d *fakeDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	return d.revoked[id], d.err
}

func newEcho(tokens *token.Manager, denylist token.Denylist) *echo.Echo {
	e := echo.New()
	protected := e.Group("", middleware.VerifyToken(tokens, denylist))
	protected.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"id": middleware.CurrentUser(c).UserID})
	})
	protected.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, middleware.VerifyAdmin())
	return e
}

func issue(t *testing.T, tokens *token.Manager, role models.Role) (string, *token.Claims) {
	t.Helper()
	signed, claims, err := tokens.Issue(&models.UserModel{ID: 7, Email: "ana@example.com", Role: role})
	require.NoError(t, err)
	return signed, claims
}

func TestVerifyToken(t *testing.T) {
	tokens := token.NewManager(secret, time.Hour)
	valid, _ := issue(t, tokens, models.RoleUser)
	other, _ := issue(t, token.NewManager("another-secret-value", time.Hour), models.RoleUser)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &token.Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		status  int
		message string
	}{
		{name: "no token", prepare: func(r *http.Request) {}, status: http.StatusUnauthorized, message: "No token provided"},
		{name: "cookie", prepare: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: valid})
		}, status: http.StatusOK},
		{name: "bearer header", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+valid)
		}, status: http.StatusOK},
		{name: "cookie wins over header", prepare: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: other})
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+valid)
		}, status: http.StatusUnauthorized, message: "Invalid token"},
		{name: "non bearer scheme", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Basic "+valid)
		}, status: http.StatusUnauthorized, message: "No token provided"},
		{name: "garbage", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
		}, status: http.StatusUnauthorized, message: "Invalid token"},
		{name: "expired", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+expired)
		}, status: http.StatusUnauthorized, message: "Invalid token"},
	}

	e := newEcho(tokens, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.JSONEq(t, `{"success":false,"message":"`+tt.message+`"}`, rec.Body.String())
			} else {
				assert.JSONEq(t, `{"id":7}`, rec.Body.String())
			}
		})
	}
}

func TestVerifyToken_Denylist(t *testing.T) {
	tokens := token.NewManager(secret, time.Hour)
	signed, claims := issue(t, tokens, models.RoleUser)

	deny := &fakeDenylist{revoked: map[string]bool{}}
	e := newEcho(tokens, deny)

	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call())

	require.NoError(t, deny.Revoke(context.Background(), claims.TokenID(), claims.ExpiresAt.Time))
	assert.Equal(t, http.StatusUnauthorized, call())

	// a failing denylist does not lock users out
	deny.revoked = map[string]bool{}
	deny.err = errors.New("redis down")
	assert.Equal(t, http.StatusOK, call())
}

func TestVerifyAdmin(t *testing.T) {
	tokens := token.NewManager(secret, time.Hour)
	userToken, _ := issue(t, tokens, models.RoleUser)
	adminToken, _ := issue(t, tokens, models.RoleAdmin)
	e := newEcho(tokens, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+userToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Admin access required"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestVerifyAdmin_WithoutClaims(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, middleware.VerifyAdmin())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
