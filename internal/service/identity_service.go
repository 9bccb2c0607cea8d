// Package service contains the service layer for the Misbar API
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/token"
	"github.com/nsvirk/misbarapi/pkg/utils/auditlog"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
)

// IdentityService resolves a provider-vouched identity to exactly one user row
type IdentityService struct {
	users  UserStore
	logins LoginLogStore
	tokens *token.Manager
	audit  AuditRecorder
	now    func() time.Time
}

// NewIdentityService creates a new IdentityService. audit may be nil.
func NewIdentityService(users UserStore, logins LoginLogStore, tokens *token.Manager, audit AuditRecorder) *IdentityService {
	if audit == nil {
		audit = noopAudit{}
	}
	return &IdentityService{
		users:  users,
		logins: logins,
		tokens: tokens,
		audit:  audit,
		now:    time.Now,
	}
}

// SignIn finds or creates the user for an external identity, issues a session
// token and records the login under the provider kind
func (s *IdentityService) SignIn(ctx context.Context, identity models.ExternalIdentity) (*Session, error) {
	identity = identity.Normalize()
	if !identity.Provider.Federated() {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported provider %q", identity.Provider)}
	}
	if identity.Subject == "" {
		return nil, &ValidationError{Fields: []string{"subject"}}
	}
	if identity.Email == "" {
		return nil, ErrNoEmail
	}

	user, err := s.resolve(ctx, identity)
	if errors.Is(err, models.ErrDuplicateKey) {
		// lost a creation race against a concurrent sign-in for the same email
		user, err = s.resolve(ctx, identity)
	}
	if err != nil {
		return nil, err
	}

	signed, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.logins.Append(ctx, user.ID, identity.Provider, s.now()); err != nil {
		zaplogger.Error("Failed to append login log", zaplogger.Fields{
			"user_id":  user.ID,
			"provider": string(identity.Provider),
			"error":    err.Error(),
		})
	}

	return &Session{User: user, Token: signed, Claims: claims}, nil
}

func (s *IdentityService) resolve(ctx context.Context, identity models.ExternalIdentity) (*models.UserModel, error) {
	user, err := s.users.GetByProviderID(ctx, identity.Provider, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup by provider id: %w", err)
	}

	user, err = s.users.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		return s.LinkIdentity(ctx, user, identity)
	case errors.Is(err, models.ErrNotFound):
		return s.create(ctx, identity)
	default:
		return nil, fmt.Errorf("lookup by email: %w", err)
	}
}

// LinkIdentity attaches a federated subject to an existing account. A row that
// already holds a different subject for the provider is never overwritten.
func (s *IdentityService) LinkIdentity(ctx context.Context, user *models.UserModel, identity models.ExternalIdentity) (*models.UserModel, error) {
	if existing := user.ProviderID(identity.Provider); existing != nil && *existing != "" {
		if *existing == identity.Subject {
			return user, nil
		}
		return nil, ErrIdentityConflict
	}

	link := &models.IdentityLinkModel{
		UserID:          user.ID,
		Provider:        identity.Provider,
		ProviderSubject: identity.Subject,
		LinkedAt:        s.now(),
	}
	if err := s.users.LinkProvider(ctx, link); err != nil {
		if errors.Is(err, models.ErrAlreadyLinked) {
			return s.relinked(ctx, user.ID, identity)
		}
		if errors.Is(err, models.ErrDuplicateKey) {
			// subject already belongs to another row
			return nil, ErrIdentityConflict
		}
		return nil, fmt.Errorf("link provider: %w", err)
	}

	user.SetProviderID(identity.Provider, identity.Subject)
	s.audit.Record(ctx, auditlog.EventAccountLinked, user.ID, map[string]interface{}{
		"provider":    string(identity.Provider),
		"credentials": user.Credentials(),
	})
	zaplogger.Info("Linked federated identity", zaplogger.Fields{
		"user_id":  user.ID,
		"provider": string(identity.Provider),
	})
	return user, nil
}

// relinked handles a concurrent link of the same row between read and write
func (s *IdentityService) relinked(ctx context.Context, userID uint, identity models.ExternalIdentity) (*models.UserModel, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	if existing := user.ProviderID(identity.Provider); existing != nil && *existing == identity.Subject {
		return user, nil
	}
	return nil, ErrIdentityConflict
}

func (s *IdentityService) create(ctx context.Context, identity models.ExternalIdentity) (*models.UserModel, error) {
	user := &models.UserModel{
		Name:     identity.GivenName,
		LastName: identity.FamilyName,
		Email:    identity.Email,
		Role:     models.RoleUser,
	}
	user.SetProviderID(identity.Provider, identity.Subject)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
