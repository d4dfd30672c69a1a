package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/logwell/logwell/internal/apperr"
)

// APIResponse is the standard success response shape.
type APIResponse struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
}

// APIError is the standard error response shape. Kind is a stable
// machine-readable error classification; Fields carries field-level
// validation detail when present.
type APIError struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Path    string            `json:"path"`
	Status  int               `json:"status"`
}

// pathFromContext returns the request path from Echo context.
func pathFromContext(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// OK sends a 200 response with data.
func OK(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, APIResponse{
		Data:    data,
		Status:  http.StatusOK,
		Message: message,
		Path:    pathFromContext(c),
	})
}

// Created sends a 201 response with data.
func Created(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusCreated, APIResponse{
		Data:    data,
		Status:  http.StatusCreated,
		Message: message,
		Path:    pathFromContext(c),
	})
}

// Error sends a JSON error response with explicit kind and status.
func Error(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, APIError{
		Kind:    kind,
		Message: message,
		Path:    pathFromContext(c),
		Status:  status,
	})
}

// FromError maps an application error to its HTTP response. Only the
// kind, message, and validation field map leave the process; wrapped
// causes stay in the server log.
func FromError(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	body := APIError{
		Kind:   string(apperr.KindOf(err)),
		Fields: apperr.FieldsOf(err),
		Path:   pathFromContext(c),
		Status: status,
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Message = ae.Message
	} else {
		body.Message = "internal error"
	}
	return c.JSON(status, body)
}
