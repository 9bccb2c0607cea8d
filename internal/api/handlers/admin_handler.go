package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/api/middleware"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
)

// AdminHandler is the handler for the admin API
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new handler for the admin API
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type adminUpdateRequest struct {
	Name        string  `json:"name" form:"name"`
	LastName    string  `json:"last_name" form:"last_name"`
	Email       string  `json:"email" form:"email"`
	Institution *string `json:"institution" form:"institution"`
	PhoneNumber *string `json:"phone_number" form:"phone_number"`
	Role        string  `json:"role" form:"role"`
}

// ListUsers lists every user, newest first
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.admin.ListUsers(c.Request().Context())
	if err != nil {
		return handleError(c, err, "Failed to get users")
	}
	return response.SuccessResponse(c, "", response.Payload{"users": users})
}

// UpdateUser edits any user's profile and role
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.ErrorResponse(c, http.StatusNotFound, "User not found")
	}
	var req adminUpdateRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	actor := middleware.CurrentUser(c)
	user, err := h.admin.UpdateUser(c.Request().Context(), actor.UserID, id, models.AdminUpdate{
		Name:        req.Name,
		LastName:    req.LastName,
		Email:       req.Email,
		Institution: req.Institution,
		PhoneNumber: req.PhoneNumber,
		Role:        models.Role(req.Role),
	})
	if err != nil {
		return handleError(c, err, "Failed to update user")
	}
	return response.SuccessResponse(c, "User updated successfully", response.Payload{
		"user": models.ToPublicProfile(user),
	})
}

// DeleteUser removes a user and everything it owns
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.ErrorResponse(c, http.StatusNotFound, "User not found")
	}

	actor := middleware.CurrentUser(c)
	if err := h.admin.DeleteUser(c.Request().Context(), actor.UserID, id); err != nil {
		return handleError(c, err, "Failed to delete user")
	}
	return response.SuccessResponse(c, "User deleted successfully", nil)
}

// LoginLogs lists the most recent logins
func (h *AdminHandler) LoginLogs(c echo.Context) error {
	logs, err := h.admin.LoginLogs(c.Request().Context())
	if err != nil {
		return handleError(c, err, "Failed to get login logs")
	}
	return response.SuccessResponse(c, "", response.Payload{"logs": logs})
}
