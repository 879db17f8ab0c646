package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stylelane/orders-service/internal/domain"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
}

type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(c),
	})
}

func CreatedResponse(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(c),
	})
}

func errorResponse(c *fiber.Ctx, status int, code, message string, details map[string]interface{}) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(c),
	})
}

func BadRequestResponse(c *fiber.Ctx, message string, details map[string]interface{}) error {
	return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *fiber.Ctx, message string) error {
	return errorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// BusinessErrorResponse maps the engine error taxonomy onto HTTP status
// codes; anything unrecognized is treated as retryable.
func BusinessErrorResponse(c *fiber.Ctx, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return errorResponse(c, fiber.StatusServiceUnavailable, "UNAVAILABLE",
			"temporary failure, retry", nil)
	}

	switch de.Kind {
	case domain.KindValidation:
		return errorResponse(c, fiber.StatusBadRequest, "BAD_REQUEST", de.Message, de.Details)
	case domain.KindForbidden:
		return errorResponse(c, fiber.StatusForbidden, "FORBIDDEN", de.Message, de.Details)
	case domain.KindNotFound:
		return errorResponse(c, fiber.StatusNotFound, "NOT_FOUND", de.Message, de.Details)
	case domain.KindInsufficientStock:
		return errorResponse(c, fiber.StatusConflict, "OUT_OF_STOCK", de.Message, de.Details)
	case domain.KindInvalidTransition:
		return errorResponse(c, fiber.StatusConflict, "INVALID_TRANSITION", de.Message, de.Details)
	case domain.KindConflict:
		return errorResponse(c, fiber.StatusConflict, "CONFLICT", de.Message, de.Details)
	default:
		return errorResponse(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", de.Message, de.Details)
	}
}

func getRequestID(c *fiber.Ctx) string {
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Set("X-Request-ID", requestID)
	}
	return requestID
}
