// Package repository contains the repository layer for the Misbar API
package repository

import (
	"context"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
	"gorm.io/gorm"
)

// LoginLogRepository stores successful authentication events
type LoginLogRepository struct {
	DB *gorm.DB
}

// NewLoginLogRepository creates a new repository for login logs
func NewLoginLogRepository(db *gorm.DB) *LoginLogRepository {
	return &LoginLogRepository{DB: db}
}

// Append records one login
func (r *LoginLogRepository) Append(ctx context.Context, userID uint, provider models.CredentialKind, at time.Time) error {
	entry := &models.LoginLogModel{UserID: userID, Provider: provider, LoginTime: at}
	return translateError(r.DB.WithContext(ctx).Create(entry).Error)
}

// Recent returns the latest logins joined with their users, newest first
func (r *LoginLogRepository) Recent(ctx context.Context, limit int) ([]models.LoginLogView, error) {
	var logs []models.LoginLogView
	err := r.DB.WithContext(ctx).
		Table(models.LoginLogsTableName+" AS ll").
		Select("ll.login_time, ll.provider, u.name, u.last_name, u.email").
		Joins("JOIN "+models.UsersTableName+" AS u ON u.id = ll.user_id").
		Order("ll.login_time DESC").
		Limit(limit).
		Scan(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// PruneBefore deletes logins older than cutoff and returns the number removed
func (r *LoginLogRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("login_time < ?", cutoff).Delete(&models.LoginLogModel{})
	return res.RowsAffected, res.Error
}
