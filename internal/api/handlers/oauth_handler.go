package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/oauth"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
)

// IdentityProvider is an OAuth provider that can start and finish a login
type IdentityProvider interface {
	Kind() models.CredentialKind
	AuthURL(state string) string
	Resolve(ctx context.Context, code string) (models.ExternalIdentity, error)
}

// MicrosoftTokenResolver resolves an identity from tokens the client already holds
type MicrosoftTokenResolver interface {
	ResolveTokens(ctx context.Context, accessToken, idToken string) (models.ExternalIdentity, error)
}

// OAuthHandler is the handler for the federated login flows
type OAuthHandler struct {
	identity    *service.IdentityService
	providers   map[models.CredentialKind]IdentityProvider
	microsoft   MicrosoftTokenResolver
	cookies     CookieConfig
	frontendURL string
}

// NewOAuthHandler creates a new handler for the OAuth API. Providers that are
// not configured are simply left out.
func NewOAuthHandler(identity *service.IdentityService, cookies CookieConfig, frontendURL string, providers ...IdentityProvider) *OAuthHandler {
	h := &OAuthHandler{
		identity:    identity,
		providers:   make(map[models.CredentialKind]IdentityProvider, len(providers)),
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
	for _, p := range providers {
		h.providers[p.Kind()] = p
		if r, ok := p.(MicrosoftTokenResolver); ok && p.Kind() == models.CredentialMicrosoft {
			h.microsoft = r
		}
	}
	return h
}

// Begin returns the provider authorization URL and remembers the state in a
// short lived cookie
func (h *OAuthHandler) Begin(kind models.CredentialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		provider, ok := h.providers[kind]
		if !ok {
			return response.ErrorResponse(c, http.StatusInternalServerError, "Sign-in provider is not configured")
		}
		state := oauth.NewState()
		h.cookies.setState(c, state)
		return response.SuccessResponse(c, "", response.Payload{"url": provider.AuthURL(state)})
	}
}

// Callback completes the login and redirects the browser back to the frontend
func (h *OAuthHandler) Callback(kind models.CredentialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := h.cookies.takeState(c)

		provider, ok := h.providers[kind]
		if !ok {
			return h.fail(c, kind, errors.New("provider not configured"))
		}
		if providerErr := c.QueryParam("error"); providerErr != "" {
			return h.fail(c, kind, errors.New("provider error: "+providerErr))
		}
		code := c.QueryParam("code")
		if code == "" {
			return h.fail(c, kind, oauth.ErrMissingCode)
		}
		state := c.QueryParam("state")
		if expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
			return h.fail(c, kind, errors.New("state mismatch"))
		}

		ctx := c.Request().Context()
		identity, err := provider.Resolve(ctx, code)
		if err != nil {
			return h.fail(c, kind, err)
		}
		session, err := h.identity.SignIn(ctx, identity)
		if err != nil {
			return h.fail(c, kind, err)
		}

		h.cookies.setSession(c, session.Token)
		return c.Redirect(http.StatusFound, h.redirectURL("success", string(kind)+"_login"))
	}
}

type microsoftTokenRequest struct {
	AccessToken string `json:"access_token" form:"access_token"`
	IDToken     string `json:"id_token" form:"id_token"`
}

// MicrosoftToken completes a Microsoft login from tokens acquired by the client
func (h *OAuthHandler) MicrosoftToken(c echo.Context) error {
	if h.microsoft == nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "Sign-in provider is not configured")
	}
	var req microsoftTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.AccessToken == "" && req.IDToken == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, "Access token is required")
	}

	ctx := c.Request().Context()
	identity, err := h.microsoft.ResolveTokens(ctx, req.AccessToken, req.IDToken)
	if err != nil {
		logAuthFailure(models.CredentialMicrosoft, err)
		return response.ErrorResponse(c, http.StatusUnauthorized, "Microsoft authentication failed")
	}
	session, err := h.identity.SignIn(ctx, identity)
	if err != nil {
		if errors.Is(err, service.ErrIdentityConflict) || errors.Is(err, service.ErrNoEmail) || service.IsValidation(err) {
			logAuthFailure(models.CredentialMicrosoft, err)
			return response.ErrorResponse(c, http.StatusUnauthorized, "Microsoft authentication failed")
		}
		return handleError(c, err, "Microsoft authentication failed")
	}

	h.cookies.setSession(c, session.Token)
	return response.SuccessResponse(c, "Login successful", response.Payload{
		"user": models.ToPublicProfile(session.User),
	})
}

func (h *OAuthHandler) fail(c echo.Context, kind models.CredentialKind, err error) error {
	logAuthFailure(kind, err)
	return c.Redirect(http.StatusFound, h.redirectURL("error", string(kind)+"_auth_failed"))
}

func (h *OAuthHandler) redirectURL(key, value string) string {
	return h.frontendURL + "/auth?" + url.Values{key: {value}}.Encode()
}

func logAuthFailure(kind models.CredentialKind, err error) {
	zaplogger.Warn("Federated login failed", zaplogger.Fields{
		"provider": string(kind),
		"error":    err.Error(),
	})
}
