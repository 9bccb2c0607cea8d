// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
)

// handleError maps service errors onto the JSON envelope. Anything unknown is
// logged and answered with the generic fallback message.
func handleError(c echo.Context, err error, fallback string) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return response.ErrorResponse(c, http.StatusBadRequest, ve.Error())
	case errors.Is(err, service.ErrUserExists):
		return response.ErrorResponse(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		return response.ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrSelfDelete):
		return response.ErrorResponse(c, http.StatusForbidden, "Admins cannot delete their own account")
	case errors.Is(err, service.ErrUserNotFound):
		return response.ErrorResponse(c, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrSessionNotFound):
		return response.ErrorResponse(c, http.StatusNotFound, "Chat session not found")
	}

	zaplogger.Error(fallback, zaplogger.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
		"error":  err.Error(),
	})
	return response.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

// paramID parses a positive numeric path parameter
func paramID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
