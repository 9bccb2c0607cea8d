package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/api/middleware"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
)

// UserHandler is the handler for self-service profile edits
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler creates a new handler for the user API
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

type profileRequest struct {
	Name        string  `json:"name" form:"name"`
	LastName    string  `json:"last_name" form:"last_name"`
	Institution *string `json:"institution" form:"institution"`
	PhoneNumber *string `json:"phone_number" form:"phone_number"`
}

// UpdateProfile edits the caller's own profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	claims := middleware.CurrentUser(c)
	user, err := h.auth.UpdateProfile(c.Request().Context(), claims.UserID, models.ProfileUpdate{
		Name:        req.Name,
		LastName:    req.LastName,
		Institution: req.Institution,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return handleError(c, err, "Failed to update profile")
	}
	return response.SuccessResponse(c, "Profile updated successfully", response.Payload{
		"user": models.ToPublicProfile(user),
	})
}
