// Package service contains the service layer for the Misbar API
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nsvirk/misbarapi/internal/models"
)

// ChatService persists the AI chat history of a user. Every operation is
// scoped to sessions owned by the caller.
type ChatService struct {
	chats ChatStore
}

// NewChatService creates a new ChatService
func NewChatService(chats ChatStore) *ChatService {
	return &ChatService{chats: chats}
}

// MessageInput is a message to append to a session
type MessageInput struct {
	Role      string
	Content   string
	ImageData *string
}

func (s *ChatService) ListSessions(ctx context.Context, userID uint) ([]models.ChatSessionModel, error) {
	sessions, err := s.chats.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	if sessions == nil {
		sessions = []models.ChatSessionModel{}
	}
	return sessions, nil
}

func (s *ChatService) CreateSession(ctx context.Context, userID uint, title string) (*models.ChatSessionModel, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultChatTitle
	}
	session := &models.ChatSessionModel{UserID: userID, Title: title}
	if err := s.chats.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	return session, nil
}

func (s *ChatService) Messages(ctx context.Context, userID, sessionID uint) ([]models.ChatMessageModel, error) {
	if _, err := s.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.chats.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	if messages == nil {
		messages = []models.ChatMessageModel{}
	}
	return messages, nil
}

func (s *ChatService) AddMessage(ctx context.Context, userID, sessionID uint, in MessageInput) (*models.ChatMessageModel, error) {
	if err := requireFields([2]string{"role", in.Role}, [2]string{"content", in.Content}); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if in.ImageData != nil && *in.ImageData == "" {
		in.ImageData = nil
	}

	message := &models.ChatMessageModel{
		SessionID: sessionID,
		Role:      in.Role,
		Content:   in.Content,
		ImageData: in.ImageData,
	}
	if err := s.chats.AddMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("add chat message: %w", err)
	}
	return message, nil
}

func (s *ChatService) RenameSession(ctx context.Context, userID, sessionID uint, title string) (*models.ChatSessionModel, error) {
	if err := requireFields([2]string{"title", title}); err != nil {
		return nil, err
	}
	session, err := s.chats.RenameSession(ctx, userID, sessionID, strings.TrimSpace(title))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("rename chat session: %w", err)
	}
	return session, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if err := s.chats.DeleteSession(ctx, userID, sessionID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}

func (s *ChatService) owned(ctx context.Context, userID, sessionID uint) (*models.ChatSessionModel, error) {
	session, err := s.chats.GetSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	return session, nil
}
