// Package models contains the models for the Misbar API
package models

import (
	"strings"
	"time"
)

const IdentityLinksTableName = "identity_links"

// CredentialKind identifies how a user proved their identity
type CredentialKind string

const (
	CredentialPassword  CredentialKind = "password"
	CredentialGoogle    CredentialKind = "google"
	CredentialMicrosoft CredentialKind = "microsoft"
)

// Federated reports whether the kind is backed by an external identity provider
func (k CredentialKind) Federated() bool {
	return k == CredentialGoogle || k == CredentialMicrosoft
}

// Column returns the users column that stores the provider subject
func (k CredentialKind) Column() string {
	switch k {
	case CredentialGoogle:
		return "google_id"
	case CredentialMicrosoft:
		return "microsoft_id"
	}
	return ""
}

// IdentityLinkModel records the moment a federated identity was attached to an
// existing account
type IdentityLinkModel struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"column:user_id;index" json:"user_id"`
	Provider        CredentialKind `gorm:"column:provider;uniqueIndex:idx_identity_provider_subject,priority:1" json:"provider"`
	ProviderSubject string         `gorm:"column:provider_subject;uniqueIndex:idx_identity_provider_subject,priority:2" json:"provider_subject"`
	LinkedAt        time.Time      `gorm:"column:linked_at" json:"linked_at"`
}

func (IdentityLinkModel) TableName() string {
	return IdentityLinksTableName
}

// ExternalIdentity is the identity an OAuth provider vouched for
type ExternalIdentity struct {
	Provider    CredentialKind
	Subject     string
	Email       string
	GivenName   string
	FamilyName  string
	DisplayName string
}

// Normalize trims the fields and derives missing names from the display name,
// falling back to the local part of the email
func (e ExternalIdentity) Normalize() ExternalIdentity {
	e.Subject = strings.TrimSpace(e.Subject)
	e.Email = strings.TrimSpace(e.Email)
	e.GivenName = strings.TrimSpace(e.GivenName)
	e.FamilyName = strings.TrimSpace(e.FamilyName)
	e.DisplayName = strings.TrimSpace(e.DisplayName)

	if e.GivenName == "" && e.FamilyName == "" && e.DisplayName != "" {
		given, family, _ := strings.Cut(e.DisplayName, " ")
		e.GivenName = given
		e.FamilyName = strings.TrimSpace(family)
	}
	if e.GivenName == "" {
		local, _, _ := strings.Cut(e.Email, "@")
		e.GivenName = local
	}
	return e
}
