package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/api/middleware"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/internal/token"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
)

// AuthHandler is the handler for password authentication and the current user
type AuthHandler struct {
	auth     *service.AuthService
	tokens   *token.Manager
	denylist token.Denylist
	cookies  CookieConfig
}

// NewAuthHandler creates a new handler for the auth API
func NewAuthHandler(auth *service.AuthService, tokens *token.Manager, denylist token.Denylist, cookies CookieConfig) *AuthHandler {
	if denylist == nil {
		denylist = token.NoopDenylist{}
	}
	return &AuthHandler{auth: auth, tokens: tokens, denylist: denylist, cookies: cookies}
}

type registerRequest struct {
	Name        string  `json:"name" form:"name"`
	LastName    string  `json:"last_name" form:"last_name"`
	Email       string  `json:"email" form:"email"`
	Password    string  `json:"password" form:"password"`
	Institution *string `json:"institution" form:"institution"`
	PhoneNumber *string `json:"phone_number" form:"phone_number"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Register creates a password account and starts a session
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	session, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Name:        req.Name,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Institution: req.Institution,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return handleError(c, err, "Registration failed")
	}

	h.cookies.setSession(c, session.Token)
	return response.SuccessResponse(c, "User registered successfully", response.Payload{
		"user": models.ToPublicProfile(session.User),
	})
}

// Login authenticates with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	session, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return handleError(c, err, "Login failed")
	}

	h.cookies.setSession(c, session.Token)
	return response.SuccessResponse(c, "Login successful", response.Payload{
		"user": models.ToPublicProfile(session.User),
	})
}

// Logout clears the session cookie and revokes the token when a denylist is
// configured. It always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	if raw := middleware.TokenFromRequest(c); raw != "" {
		if claims, err := h.tokens.Parse(raw); err == nil {
			if err := h.denylist.Revoke(c.Request().Context(), claims.TokenID(), claims.ExpiresAt.Time); err != nil {
				zaplogger.Warn("Failed to revoke token on logout", zaplogger.Fields{
					"user_id": claims.UserID,
					"error":   err.Error(),
				})
			}
		}
	}

	h.cookies.clearSession(c)
	return response.SuccessResponse(c, "Logout successful", nil)
}

// Me returns the profile of the authenticated user, read fresh from storage
func (h *AuthHandler) Me(c echo.Context) error {
	claims := middleware.CurrentUser(c)
	user, err := h.auth.CurrentUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return handleError(c, err, "Failed to get user info")
	}
	return response.SuccessResponse(c, "", response.Payload{
		"user": models.ToPublicProfile(user),
	})
}
