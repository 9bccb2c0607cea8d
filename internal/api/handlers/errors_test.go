package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/nsvirk/misbarapi/internal/service"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{&service.ValidationError{Fields: []string{"email"}}, http.StatusBadRequest, "missing required fields: email"},
		{fmt.Errorf("register: %w", service.ErrUserExists), http.StatusBadRequest, "User already exists"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{service.ErrSelfDelete, http.StatusForbidden, "Admins cannot delete their own account"},
		{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{service.ErrSessionNotFound, http.StatusNotFound, "Chat session not found"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "Something failed"},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			assert.NoError(t, handleError(c, tt.err, "Something failed"))
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"`+tt.message+`"}`, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

func TestParamID(t *testing.T) {
	e := echo.New()
	for value, want := range map[string]bool{"12": true, "0": false, "-1": false, "abc": false, "": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(value)

		_, ok := paramID(c, "id")
		assert.Equal(t, want, ok, value)
	}
}
