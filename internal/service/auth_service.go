// Package service contains the service layer for the Misbar API
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/token"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for password hashes
const BcryptCost = 10

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// dummyHash is compared against when the email is unknown so both failure
// paths spend the same time in bcrypt
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("misbar-dummy-password"), BcryptCost)

// RegisterInput is the payload of a password registration
type RegisterInput struct {
	Name        string
	LastName    string
	Email       string
	Password    string
	Institution *string
	PhoneNumber *string
}

// Session is an authenticated user together with its signed token
type Session struct {
	User   *models.UserModel
	Token  string
	Claims *token.Claims
}

// AuthService handles password registration, login and the current user
type AuthService struct {
	users  UserStore
	logins LoginLogStore
	tokens *token.Manager
	now    func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, logins LoginLogStore, tokens *token.Manager) *AuthService {
	return &AuthService{
		users:  users,
		logins: logins,
		tokens: tokens,
		now:    time.Now,
	}
}

// Register creates a password account with role user and returns its session.
// Registration does not write a login log.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	if err := requireFields(
		[2]string{"name", in.Name},
		[2]string{"last_name", in.LastName},
		[2]string{"email", in.Email},
		[2]string{"password", in.Password},
	); err != nil {
		return nil, err
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)

	user := &models.UserModel{
		Name:        in.Name,
		LastName:    in.LastName,
		Email:       in.Email,
		Password:    &hashed,
		Institution: in.Institution,
		PhoneNumber: in.PhoneNumber,
		Role:        models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login authenticates an email and password. Unknown emails, wrong passwords
// and accounts without a password all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.HasCredential(models.CredentialPassword) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.recordLogin(ctx, user.ID, models.CredentialPassword)
	return session, nil
}

// CurrentUser re-reads the user behind a token from storage
func (s *AuthService) CurrentUser(ctx context.Context, id uint) (*models.UserModel, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a self-edit of the caller's profile
func (s *AuthService) UpdateProfile(ctx context.Context, id uint, update models.ProfileUpdate) (*models.UserModel, error) {
	update.Name = strings.TrimSpace(update.Name)
	update.LastName = strings.TrimSpace(update.LastName)
	if err := requireFields(
		[2]string{"name", update.Name},
		[2]string{"last_name", update.LastName},
	); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// SeedAdmin creates the administrator account when no user holds the email.
// It reports whether an account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if err := checkPasswordLength(password); err != nil {
		return false, fmt.Errorf("admin password: %w", err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)
	admin := &models.UserModel{
		Name:     "Admin",
		LastName: "User",
		Email:    email,
		Password: &hashed,
		Role:     models.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func checkPasswordLength(password string) error {
	if len(password) > MaxPasswordBytes {
		return &ValidationError{Fields: []string{"password"}, Reason: fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes)}
	}
	return nil
}

func (s *AuthService) issue(user *models.UserModel) (*Session, error) {
	signed, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, Token: signed, Claims: claims}, nil
}

// recordLogin appends a login log. A failed write is logged and does not undo
// the login.
func (s *AuthService) recordLogin(ctx context.Context, userID uint, provider models.CredentialKind) {
	if err := s.logins.Append(ctx, userID, provider, s.now()); err != nil {
		zaplogger.Error("Failed to append login log", zaplogger.Fields{
			"user_id":  userID,
			"provider": string(provider),
			"error":    err.Error(),
		})
	}
}
