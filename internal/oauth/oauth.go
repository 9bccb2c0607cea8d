// Package oauth resolves identities vouched for by external OAuth providers
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
)

var (
	ErrMissingCode      = errors.New("missing authorization code")
	ErrNoIDToken        = errors.New("provider response carried no id token")
	ErrNoEmail          = errors.New("provider returned no email")
	ErrEmailNotVerified = errors.New("provider email is not verified")
)

// DefaultTimeout bounds every outbound provider call
const DefaultTimeout = 10 * time.Second

// Provider is an OAuth authorization code flow ending in a verified identity
type Provider interface {
	Kind() models.CredentialKind
	AuthURL(state string) string
	Resolve(ctx context.Context, code string) (models.ExternalIdentity, error)
}

// NewState returns an unguessable value for the state parameter
func NewState() string {
	return uuid.NewString()
}

// httpClient is the bounded client shared by provider calls
func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// retryBackoff allows a single retry after a short pause
var retryBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(1, retry.NewConstant(200*time.Millisecond))
}

// withRetry runs fn with a per-attempt timeout, retrying once when fn marks
// its error as retryable
func withRetry(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return retry.Do(ctx, retryBackoff(), func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(attemptCtx)
	})
}

// exchange trades an authorization code for tokens. Transport failures and
// 5xx responses are retried; a rejected code is not, since codes are single use.
func exchange(ctx context.Context, conf *oauth2.Config, client *http.Client, timeout time.Duration, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	var tok *oauth2.Token
	err := withRetry(ctx, timeout, func(ctx context.Context) error {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		t, err := conf.Exchange(ctx, code)
		if err != nil {
			var re *oauth2.RetrieveError
			if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
				return err
			}
			return retry.RetryableError(err)
		}
		tok = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// idTokenFrom extracts the raw id token from a token response
func idTokenFrom(tok *oauth2.Token) (string, error) {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return "", ErrNoIDToken
	}
	return raw, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
