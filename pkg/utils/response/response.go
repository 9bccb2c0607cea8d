// Package response contains the JSON envelope shared by every endpoint
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Payload holds the top level keys merged into a success envelope
type Payload map[string]interface{}

// SuccessResponse sends `{ success: true, message?, ...payload }` with status 200
func SuccessResponse(c echo.Context, message string, payload Payload) error {
	return SuccessResponseWithStatus(c, http.StatusOK, message, payload)
}

// SuccessResponseWithStatus sends a success envelope with the given status
func SuccessResponseWithStatus(c echo.Context, httpStatus int, message string, payload Payload) error {
	body := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	if message != "" {
		body["message"] = message
	}
	return c.JSON(httpStatus, body)
}

// ErrorResponse sends `{ success: false, message }`
func ErrorResponse(c echo.Context, httpStatus int, message string) error {
	return c.JSON(httpStatus, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
