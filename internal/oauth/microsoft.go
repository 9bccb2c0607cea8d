package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const (
	graphMeURL  = "https://graph.microsoft.com/v1.0/me"
	jwksURLTmpl = "https://login.microsoftonline.com/%s/discovery/v2.0/keys"
	jwksMaxAge  = time.Hour
)

// MicrosoftConfig configures the Microsoft sign-in flow
type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string
	Tenant       string
	RedirectURL  string
	Timeout      time.Duration
}

// MicrosoftProvider implements the Microsoft identity platform flow. Profile
// fields come from Graph; when Graph is unavailable they come from the id
// token, which is only trusted after its signature is verified.
type MicrosoftProvider struct {
	conf     *oauth2.Config
	client   *http.Client
	timeout  time.Duration
	graphURL string
	jwksURL  string
	now      func() time.Time

	mu        sync.Mutex
	keys      *jose.JSONWebKeySet
	keysFetch time.Time
}

// NewMicrosoftProvider creates a new MicrosoftProvider
func NewMicrosoftProvider(cfg MicrosoftConfig) *MicrosoftProvider {
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}
	return &MicrosoftProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile", "User.Read"},
			Endpoint:     microsoft.AzureADEndpoint(tenant),
		},
		client:   httpClient(cfg.Timeout),
		timeout:  cfg.Timeout,
		graphURL: graphMeURL,
		jwksURL:  fmt.Sprintf(jwksURLTmpl, tenant),
		now:      time.Now,
	}
}

func (p *MicrosoftProvider) Kind() models.CredentialKind {
	return models.CredentialMicrosoft
}

// AuthURL returns the authorization URL with query response mode
func (p *MicrosoftProvider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// Resolve exchanges the code and resolves the identity behind the tokens
func (p *MicrosoftProvider) Resolve(ctx context.Context, code string) (models.ExternalIdentity, error) {
	tok, err := exchange(ctx, p.conf, p.client, p.timeout, code)
	if err != nil {
		return models.ExternalIdentity{}, err
	}
	idToken, _ := tok.Extra("id_token").(string)
	return p.ResolveTokens(ctx, tok.AccessToken, idToken)
}

type graphUser struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

type microsoftIDClaims struct {
	OID               string `json:"oid"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Email             string `json:"email"`
	UPN               string `json:"upn"`
	PreferredUsername string `json:"preferred_username"`
}

// ResolveTokens resolves an identity from an access token and an optional id
// token already obtained by the caller
func (p *MicrosoftProvider) ResolveTokens(ctx context.Context, accessToken, idToken string) (models.ExternalIdentity, error) {
	var (
		me       *graphUser
		graphErr = errors.New("no access token")
		claims   *microsoftIDClaims
		idErr    = ErrNoIDToken
	)
	if accessToken != "" {
		me, graphErr = p.graphMe(ctx, accessToken)
	}
	if idToken != "" {
		claims, idErr = p.verifyIDToken(ctx, idToken)
	}
	if graphErr != nil && idErr != nil {
		return models.ExternalIdentity{}, fmt.Errorf("resolve microsoft identity: graph: %v; id token: %w", graphErr, idErr)
	}
	if graphErr != nil {
		zaplogger.Warn("Microsoft Graph lookup failed, using verified id token", zaplogger.Fields{"error": graphErr.Error()})
	}

	identity := models.ExternalIdentity{Provider: models.CredentialMicrosoft}
	var graphMail, graphUPN string
	if me != nil {
		identity.Subject = me.ID
		identity.DisplayName = me.DisplayName
		identity.GivenName = me.GivenName
		identity.FamilyName = me.Surname
		graphMail, graphUPN = me.Mail, me.UserPrincipalName
	}
	var idEmail, idUPN, idPreferred string
	if claims != nil {
		// oid wins over the Graph id; for personal accounts the two differ, so
		// callers should pass the id token whenever they have one
		identity.Subject = firstNonEmpty(claims.OID, identity.Subject)
		identity.DisplayName = firstNonEmpty(identity.DisplayName, claims.Name)
		identity.GivenName = firstNonEmpty(identity.GivenName, claims.GivenName)
		identity.FamilyName = firstNonEmpty(identity.FamilyName, claims.FamilyName)
		idEmail, idUPN, idPreferred = claims.Email, claims.UPN, claims.PreferredUsername
	}
	identity.Email = firstNonEmpty(graphMail, graphUPN, idEmail, idUPN, idPreferred)

	if identity.Email == "" {
		return models.ExternalIdentity{}, ErrNoEmail
	}
	return identity.Normalize(), nil
}

func (p *MicrosoftProvider) graphMe(ctx context.Context, accessToken string) (*graphUser, error) {
	var me graphUser
	err := withRetry(ctx, p.timeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.graphURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("graph returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("graph returned %d", resp.StatusCode)
		}
		return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&me)
	})
	if err != nil {
		return nil, err
	}
	return &me, nil
}

// verifyIDToken checks signature, audience and expiry before returning claims
func (p *MicrosoftProvider) verifyIDToken(ctx context.Context, raw string) (*microsoftIDClaims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	keys, err := p.keySet(ctx, tokenKeyID(tok))
	if err != nil {
		return nil, err
	}

	var std jwt.Claims
	var claims microsoftIDClaims
	if err := tok.Claims(keys, &std, &claims); err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{
		AnyAudience: jwt.Audience{p.conf.ClientID},
		Time:        p.now(),
	}, time.Minute); err != nil {
		return nil, fmt.Errorf("validate id token: %w", err)
	}
	if !strings.HasPrefix(std.Issuer, "https://login.microsoftonline.com/") {
		return nil, fmt.Errorf("unexpected id token issuer %q", std.Issuer)
	}
	if claims.OID == "" {
		claims.OID = std.Subject
	}
	return &claims, nil
}

func tokenKeyID(tok *jwt.JSONWebToken) string {
	for _, h := range tok.Headers {
		if h.KeyID != "" {
			return h.KeyID
		}
	}
	return ""
}

// keySet returns the cached signing keys, refetching when stale or when the
// key id is unknown
func (p *MicrosoftProvider) keySet(ctx context.Context, kid string) (*jose.JSONWebKeySet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fresh := p.keys != nil && p.now().Sub(p.keysFetch) < jwksMaxAge
	if fresh && (kid == "" || len(p.keys.Key(kid)) > 0) {
		return p.keys, nil
	}

	var set jose.JSONWebKeySet
	err := withRetry(ctx, p.timeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.jwksURL, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("jwks returned %d", resp.StatusCode))
		}
		return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&set)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch signing keys: %w", err)
	}
	p.keys = &set
	p.keysFetch = p.now()
	return p.keys, nil
}
