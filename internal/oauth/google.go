package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// GoogleConfig configures the Google sign-in flow
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
}

// validateFunc verifies an id token signature and audience
type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleProvider implements the Google OpenID Connect flow
type GoogleProvider struct {
	conf     *oauth2.Config
	client   *http.Client
	timeout  time.Duration
	validate validateFunc
}

// NewGoogleProvider creates a new GoogleProvider
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	client := httpClient(cfg.Timeout)
	p := &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		client:  client,
		timeout: cfg.Timeout,
	}
	p.validate = func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
		validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, err
		}
		return validator.Validate(ctx, idToken, audience)
	}
	return p
}

func (p *GoogleProvider) Kind() models.CredentialKind {
	return models.CredentialGoogle
}

// AuthURL requests offline access with forced consent
func (p *GoogleProvider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Resolve exchanges the code and returns the identity from the verified id token
func (p *GoogleProvider) Resolve(ctx context.Context, code string) (models.ExternalIdentity, error) {
	tok, err := exchange(ctx, p.conf, p.client, p.timeout, code)
	if err != nil {
		return models.ExternalIdentity{}, err
	}
	raw, err := idTokenFrom(tok)
	if err != nil {
		return models.ExternalIdentity{}, err
	}

	var payload *idtoken.Payload
	err = withRetry(ctx, p.timeout, func(ctx context.Context) error {
		payload, err = p.validate(ctx, raw, p.conf.ClientID)
		return err
	})
	if err != nil {
		return models.ExternalIdentity{}, fmt.Errorf("verify id token: %w", err)
	}

	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return models.ExternalIdentity{}, ErrEmailNotVerified
	}
	identity := models.ExternalIdentity{
		Provider:    models.CredentialGoogle,
		Subject:     payload.Subject,
		Email:       stringClaim(payload.Claims, "email"),
		GivenName:   stringClaim(payload.Claims, "given_name"),
		FamilyName:  stringClaim(payload.Claims, "family_name"),
		DisplayName: stringClaim(payload.Claims, "name"),
	}
	if identity.Email == "" {
		return models.ExternalIdentity{}, ErrNoEmail
	}
	return identity.Normalize(), nil
}
