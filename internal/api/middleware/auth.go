package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/token"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
)

// SessionCookieName is the cookie that carries the session token
const SessionCookieName = "token"

const claimsKey = "claims"

// TokenFromRequest returns the session token, preferring the cookie over the
// Authorization header
func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if scheme, value, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(value)
	}
	return ""
}

// VerifyToken rejects requests without a valid, unrevoked session token and
// stores the claims on the context
func VerifyToken(tokens *token.Manager, denylist token.Denylist) echo.MiddlewareFunc {
	if denylist == nil {
		denylist = token.NoopDenylist{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := TokenFromRequest(c)
			if raw == "" {
				return response.ErrorResponse(c, http.StatusUnauthorized, "No token provided")
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				return response.ErrorResponse(c, http.StatusUnauthorized, "Invalid token")
			}

			revoked, err := denylist.IsRevoked(c.Request().Context(), claims.TokenID())
			if err != nil {
				// fail open when the denylist is unreachable
				zaplogger.Warn("Token denylist check failed", zaplogger.Fields{"error": err.Error()})
			}
			if revoked {
				return response.ErrorResponse(c, http.StatusUnauthorized, "Invalid token")
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// VerifyAdmin must run after VerifyToken
func VerifyAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentUser(c)
			if claims == nil {
				return response.ErrorResponse(c, http.StatusUnauthorized, "No token provided")
			}
			if !claims.IsAdmin() {
				return response.ErrorResponse(c, http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}

// CurrentUser returns the claims stored by VerifyToken, or nil
func CurrentUser(c echo.Context) *token.Claims {
	claims, _ := c.Get(claimsKey).(*token.Claims)
	return claims
}
