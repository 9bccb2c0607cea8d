// Package models contains the models for the Misbar API
package models

import (
	"errors"
	"time"
)

const UsersTableName = "users"

var (
	// ErrNotFound is returned by stores when no row matches
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned by stores when a unique constraint is violated
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrAlreadyLinked is returned when a provider id is already set on a user row
	ErrAlreadyLinked = errors.New("provider already linked")
)

// Role is the authorization role carried by a user and its session token
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserModel is one registered identity. A row may carry any combination of
// credential kinds but there is never more than one row per email.
type UserModel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:name" json:"name"`
	LastName    string    `gorm:"column:last_name" json:"last_name"`
	Email       string    `gorm:"column:email;uniqueIndex" json:"email"`
	Password    *string   `gorm:"column:password" json:"-"`
	GoogleID    *string   `gorm:"column:google_id;uniqueIndex" json:"-"`
	MicrosoftID *string   `gorm:"column:microsoft_id;uniqueIndex" json:"-"`
	Institution *string   `gorm:"column:institution" json:"institution"`
	PhoneNumber *string   `gorm:"column:phone_number" json:"phone_number"`
	Role        Role      `gorm:"column:role;default:user" json:"role"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (UserModel) TableName() string {
	return UsersTableName
}

// IsAdmin reports whether the user holds the admin role
func (u *UserModel) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Credentials returns the credential kinds attached to the user, in a stable order
func (u *UserModel) Credentials() []CredentialKind {
	kinds := make([]CredentialKind, 0, 3)
	for _, kind := range []CredentialKind{CredentialPassword, CredentialGoogle, CredentialMicrosoft} {
		if u.HasCredential(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// HasCredential reports whether the user can authenticate with the given kind
func (u *UserModel) HasCredential(kind CredentialKind) bool {
	if kind == CredentialPassword {
		return u.Password != nil && *u.Password != ""
	}
	id := u.ProviderID(kind)
	return id != nil && *id != ""
}

// ProviderID returns the external subject linked for a federated credential kind
func (u *UserModel) ProviderID(kind CredentialKind) *string {
	switch kind {
	case CredentialGoogle:
		return u.GoogleID
	case CredentialMicrosoft:
		return u.MicrosoftID
	}
	return nil
}

// SetProviderID attaches an external subject for a federated credential kind
func (u *UserModel) SetProviderID(kind CredentialKind, subject string) {
	switch kind {
	case CredentialGoogle:
		u.GoogleID = &subject
	case CredentialMicrosoft:
		u.MicrosoftID = &subject
	}
}

// ProfileUpdate holds the fields a user may change on their own profile
type ProfileUpdate struct {
	Name        string
	LastName    string
	Institution *string
	PhoneNumber *string
}

// AdminUpdate holds the fields an admin may change on any user
type AdminUpdate struct {
	Name        string
	LastName    string
	Email       string
	Institution *string
	PhoneNumber *string
	Role        Role
}

// PublicProfile is the only shape in which a user leaves the service
type PublicProfile struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	Institution *string `json:"institution"`
	PhoneNumber *string `json:"phone_number"`
	Role        Role    `json:"role"`
}

// AdminUserView is the public profile plus account metadata shown to admins
type AdminUserView struct {
	PublicProfile
	CreatedAt time.Time `json:"created_at"`
}

// ToPublicProfile projects a user onto its public profile
func ToPublicProfile(u *UserModel) PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Name:        u.Name,
		LastName:    u.LastName,
		Email:       u.Email,
		Institution: u.Institution,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
}

// ToAdminUserView projects a user onto the admin listing shape
func ToAdminUserView(u *UserModel) AdminUserView {
	return AdminUserView{
		PublicProfile: ToPublicProfile(u),
		CreatedAt:     u.CreatedAt,
	}
}
