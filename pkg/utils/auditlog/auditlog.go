// Package auditlog records security relevant events in the database
package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var AuditLogsTableName = "_audit_logs"

// Event names
const (
	EventAccountLinked = "account_linked"
	EventUserUpdated   = "user_updated"
	EventRoleChanged   = "role_changed"
	EventUserDeleted   = "user_deleted"
)

// AuditLog represents an audit entry in the database
type AuditLog struct {
	ID        uint           `gorm:"primaryKey"`
	Timestamp time.Time      `gorm:"index"`
	Event     string         `gorm:"index"`
	UserID    uint           `gorm:"index"`
	Fields    datatypes.JSON `gorm:"type:jsonb"`
}

// TableName overrides the table name used by AuditLog
func (AuditLog) TableName() string {
	return AuditLogsTableName
}

// Logger writes audit entries
type Logger struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a new audit Logger and ensures its table exists
func New(db *gorm.DB) (*Logger, error) {
	if err := db.AutoMigrate(&AuditLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate table %s: %v", AuditLogsTableName, err)
	}
	return &Logger{db: db, now: time.Now}, nil
}

// Record stores one audit entry. Failures are logged, never returned: the audit
// trail must not block the operation it describes.
func (l *Logger) Record(ctx context.Context, event string, userID uint, fields map[string]interface{}) {
	var fieldsJSON datatypes.JSON
	if len(fields) > 0 {
		jsonBytes, err := json.Marshal(fields)
		if err != nil {
			zaplogger.Error("Failed to marshal audit fields", zaplogger.Fields{"event": event, "error": err.Error()})
			return
		}
		fieldsJSON = datatypes.JSON(jsonBytes)
	}

	entry := AuditLog{
		Timestamp: l.now(),
		Event:     event,
		UserID:    userID,
		Fields:    fieldsJSON,
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		zaplogger.Error("Failed to write audit entry", zaplogger.Fields{
			"event":   event,
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
