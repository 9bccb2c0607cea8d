// Package service contains the service layer for the Misbar API
package service

import (
	"context"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
)

// UserStore persists users. Implementations return models.ErrNotFound,
// models.ErrDuplicateKey and models.ErrAlreadyLinked for the matching conditions.
type UserStore interface {
	Create(ctx context.Context, user *models.UserModel) error
	GetByID(ctx context.Context, id uint) (*models.UserModel, error)
	GetByEmail(ctx context.Context, email string) (*models.UserModel, error)
	GetByProviderID(ctx context.Context, kind models.CredentialKind, subject string) (*models.UserModel, error)
	LinkProvider(ctx context.Context, link *models.IdentityLinkModel) error
	UpdateProfile(ctx context.Context, id uint, update models.ProfileUpdate) (*models.UserModel, error)
	UpdateByAdmin(ctx context.Context, id uint, update models.AdminUpdate) (*models.UserModel, error)
	List(ctx context.Context) ([]models.UserModel, error)
	Delete(ctx context.Context, id uint) error
}

// LoginLogStore persists successful authentications
type LoginLogStore interface {
	Append(ctx context.Context, userID uint, provider models.CredentialKind, at time.Time) error
	Recent(ctx context.Context, limit int) ([]models.LoginLogView, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ChatStore persists chat sessions and messages
type ChatStore interface {
	ListSessions(ctx context.Context, userID uint) ([]models.ChatSessionModel, error)
	CreateSession(ctx context.Context, session *models.ChatSessionModel) error
	GetSession(ctx context.Context, userID, sessionID uint) (*models.ChatSessionModel, error)
	Messages(ctx context.Context, sessionID uint) ([]models.ChatMessageModel, error)
	AddMessage(ctx context.Context, message *models.ChatMessageModel) error
	RenameSession(ctx context.Context, userID, sessionID uint, title string) (*models.ChatSessionModel, error)
	DeleteSession(ctx context.Context, userID, sessionID uint) error
}

// AuditRecorder records security relevant events
type AuditRecorder interface {
	Record(ctx context.Context, event string, userID uint, fields map[string]interface{})
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, uint, map[string]interface{}) {}
