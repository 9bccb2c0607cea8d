// Package models contains the models for the Misbar API
package models

import "time"

const LoginLogsTableName = "login_logs"

// LoginLogModel is one successful authentication event. Rows are append-only.
type LoginLogModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"column:user_id;index" json:"user_id"`
	Provider  CredentialKind `gorm:"column:provider" json:"provider"`
	LoginTime time.Time      `gorm:"column:login_time;index" json:"login_time"`
}

func (LoginLogModel) TableName() string {
	return LoginLogsTableName
}

// LoginLogView is a login log row joined with the identity of its user
type LoginLogView struct {
	LoginTime time.Time      `json:"login_time"`
	Provider  CredentialKind `json:"provider"`
	Name      string         `json:"name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"`
}
