package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/api/middleware"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
)

// ChatHandler is the handler for the chat history API
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates a new handler for the chat API
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sessionRequest struct {
	Title string `json:"title" form:"title"`
}

type messageRequest struct {
	Role      string  `json:"role" form:"role"`
	Content   string  `json:"content" form:"content"`
	ImageData *string `json:"image_data" form:"image_data"`
}

func (h *ChatHandler) ListSessions(c echo.Context) error {
	sessions, err := h.chat.ListSessions(c.Request().Context(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return handleError(c, err, "Failed to get chat sessions")
	}
	return response.SuccessResponse(c, "", response.Payload{"sessions": sessions})
}

func (h *ChatHandler) CreateSession(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	session, err := h.chat.CreateSession(c.Request().Context(), middleware.CurrentUser(c).UserID, req.Title)
	if err != nil {
		return handleError(c, err, "Failed to create chat session")
	}
	return response.SuccessResponse(c, "", response.Payload{"session": session})
}

func (h *ChatHandler) Messages(c echo.Context) error {
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return response.ErrorResponse(c, http.StatusNotFound, "Chat session not found")
	}
	messages, err := h.chat.Messages(c.Request().Context(), middleware.CurrentUser(c).UserID, sessionID)
	if err != nil {
		return handleError(c, err, "Failed to get chat messages")
	}
	return response.SuccessResponse(c, "", response.Payload{"messages": messages})
}

// AddMessage appends a message. The saved row is returned under "message".
func (h *ChatHandler) AddMessage(c echo.Context) error {
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return response.ErrorResponse(c, http.StatusNotFound, "Chat session not found")
	}
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	message, err := h.chat.AddMessage(c.Request().Context(), middleware.CurrentUser(c).UserID, sessionID, service.MessageInput{
		Role:      req.Role,
		Content:   req.Content,
		ImageData: req.ImageData,
	})
	if err != nil {
		return handleError(c, err, "Failed to save chat message")
	}
	return response.SuccessResponse(c, "", response.Payload{"message": message})
}

func (h *ChatHandler) RenameSession(c echo.Context) error {
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return response.ErrorResponse(c, http.StatusNotFound, "Chat session not found")
	}
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	session, err := h.chat.RenameSession(c.Request().Context(), middleware.CurrentUser(c).UserID, sessionID, req.Title)
	if err != nil {
		return handleError(c, err, "Failed to update chat session")
	}
	return response.SuccessResponse(c, "", response.Payload{"session": session})
}

func (h *ChatHandler) DeleteSession(c echo.Context) error {
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return response.ErrorResponse(c, http.StatusNotFound, "Chat session not found")
	}
	if err := h.chat.DeleteSession(c.Request().Context(), middleware.CurrentUser(c).UserID, sessionID); err != nil {
		return handleError(c, err, "Failed to delete chat session")
	}
	return response.SuccessResponse(c, "Chat session deleted successfully", nil)
}
