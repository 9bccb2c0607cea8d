// Package models contains the models for the Misbar API
package models

import "time"

const (
	ChatSessionsTableName = "chat_sessions"
	ChatMessagesTableName = "chat_messages"
)

// DefaultChatTitle is used when a chat session is created without a title
const DefaultChatTitle = "New Chat"

// ChatSessionModel is a conversation owned by one user
type ChatSessionModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;index" json:"-"`
	Title     string    `gorm:"column:title" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ChatSessionModel) TableName() string {
	return ChatSessionsTableName
}

// ChatMessageModel is one turn of a chat session
type ChatMessageModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"column:session_id;index" json:"-"`
	Role      string    `gorm:"column:role" json:"role"`
	Content   string    `gorm:"column:content" json:"content"`
	ImageData *string   `gorm:"column:image_data" json:"image_data"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ChatMessageModel) TableName() string {
	return ChatMessagesTableName
}
