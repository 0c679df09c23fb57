package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docviewer/internal/http/middleware"
	"docviewer/internal/scanner"
	"docviewer/internal/service"
	"docviewer/internal/storage"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "SECURITY_VIOLATION", "DOCUMENT_NOT_FOUND")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Code:      code,
		Message:   message,
	}
	return c.Status(status).JSON(res)
}

// writeOpenError translates errors from opening a viewing session.
// Only a scan violation carries its own message to the client.
func writeOpenError(c *fiber.Ctx, err error) error {
	var violation *scanner.Violation
	switch {
	case errors.As(err, &violation):
		return writeError(c, fiber.StatusBadRequest, "SECURITY_VIOLATION", violation.Message)
	case errors.Is(err, storage.ErrInvalidName):
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILENAME", "invalid document name")
	case errors.Is(err, storage.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrDocumentRead):
		return writeError(c, fiber.StatusInternalServerError, "DOCUMENT_READ_ERROR", "document could not be read")
	case errors.Is(err, service.ErrSessionCreate):
		return writeError(c, fiber.StatusBadGateway, "VIEWING_SERVICE_ERROR", "viewing service unavailable")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
