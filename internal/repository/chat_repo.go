// Package repository contains the repository layer for the Misbar API
package repository

import (
	"context"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
	"gorm.io/gorm"
)

// ChatRepository stores chat sessions and their messages
type ChatRepository struct {
	DB *gorm.DB
}

// NewChatRepository creates a new repository for chat history
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

// ListSessions returns the sessions of a user, most recently active first
func (r *ChatRepository) ListSessions(ctx context.Context, userID uint) ([]models.ChatSessionModel, error) {
	var sessions []models.ChatSessionModel
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession inserts a session
func (r *ChatRepository) CreateSession(ctx context.Context, session *models.ChatSessionModel) error {
	return translateError(r.DB.WithContext(ctx).Create(session).Error)
}

// GetSession gets a session owned by userID
func (r *ChatRepository) GetSession(ctx context.Context, userID, sessionID uint) (*models.ChatSessionModel, error) {
	var session models.ChatSessionModel
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

// Messages returns the messages of a session in chronological order
func (r *ChatRepository) Messages(ctx context.Context, sessionID uint) ([]models.ChatMessageModel, error) {
	var messages []models.ChatMessageModel
	err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Order("id ASC").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// AddMessage inserts a message and marks its session as active
func (r *ChatRepository) AddMessage(ctx context.Context, message *models.ChatMessageModel) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatSessionModel{}).
			Where("id = ?", message.SessionID).
			Update("updated_at", time.Now()).Error
	})
	return translateError(err)
}

// RenameSession changes the title of a session owned by userID
func (r *ChatRepository) RenameSession(ctx context.Context, userID, sessionID uint, title string) (*models.ChatSessionModel, error) {
	res := r.DB.WithContext(ctx).Model(&models.ChatSessionModel{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Updates(map[string]interface{}{"title": title, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrNotFound
	}
	return r.GetSession(ctx, userID, sessionID)
}

// DeleteSession removes a session owned by userID together with its messages
func (r *ChatRepository) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.ChatSessionModel{}).Select("id").Where("id = ? AND user_id = ?", sessionID, userID)
		if err := tx.Where("session_id IN (?)", owned).Delete(&models.ChatMessageModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", sessionID, userID).Delete(&models.ChatSessionModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	return translateError(err)
}
