// Package service contains the service layer for the Misbar API
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/pkg/utils/auditlog"
)

// LoginLogLimit is the number of entries returned by the login log listing
const LoginLogLimit = 100

// AdminService implements user management for administrators
type AdminService struct {
	users  UserStore
	logins LoginLogStore
	audit  AuditRecorder
}

// NewAdminService creates a new AdminService. audit may be nil.
func NewAdminService(users UserStore, logins LoginLogStore, audit AuditRecorder) *AdminService {
	if audit == nil {
		audit = noopAudit{}
	}
	return &AdminService{users: users, logins: logins, audit: audit}
}

// ListUsers returns every user, newest first
func (s *AdminService) ListUsers(ctx context.Context) ([]models.AdminUserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	views := make([]models.AdminUserView, 0, len(users))
	for i := range users {
		views = append(views, models.ToAdminUserView(&users[i]))
	}
	return views, nil
}

// UpdateUser changes the profile fields and role of any user
func (s *AdminService) UpdateUser(ctx context.Context, actorID, id uint, update models.AdminUpdate) (*models.UserModel, error) {
	update.Name = strings.TrimSpace(update.Name)
	update.LastName = strings.TrimSpace(update.LastName)
	update.Email = strings.TrimSpace(update.Email)
	if err := requireFields(
		[2]string{"name", update.Name},
		[2]string{"last_name", update.LastName},
		[2]string{"email", update.Email},
	); err != nil {
		return nil, err
	}
	if update.Role != "" && !update.Role.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid role %q", update.Role)}
	}

	before, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	// an omitted role keeps the current one
	if update.Role == "" {
		update.Role = before.Role
	}

	user, err := s.users.UpdateByAdmin(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, models.ErrDuplicateKey):
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.audit.Record(ctx, auditlog.EventUserUpdated, id, map[string]interface{}{"actor_id": actorID})
	if before.Role != user.Role {
		s.audit.Record(ctx, auditlog.EventRoleChanged, id, map[string]interface{}{
			"actor_id": actorID,
			"from":     string(before.Role),
			"to":       string(user.Role),
		})
	}
	return user, nil
}

// DeleteUser removes a user and everything it owns. Administrators cannot
// delete their own account.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrSelfDelete
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.audit.Record(ctx, auditlog.EventUserDeleted, id, map[string]interface{}{"actor_id": actorID})
	return nil
}

// LoginLogs returns the most recent logins joined with their users
func (s *AdminService) LoginLogs(ctx context.Context) ([]models.LoginLogView, error) {
	logs, err := s.logins.Recent(ctx, LoginLogLimit)
	if err != nil {
		return nil, fmt.Errorf("recent login logs: %w", err)
	}
	if logs == nil {
		logs = []models.LoginLogView{}
	}
	return logs, nil
}
