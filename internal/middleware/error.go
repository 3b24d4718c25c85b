package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/pkg/logger"
)

type ErrorResponse struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	FieldErrors []apperrors.FieldError `json:"field_errors,omitempty"`
	TraceID     string                 `json:"trace_id,omitempty"`
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	errorCode := apperrors.CodeInternal
	var fieldErrors []apperrors.FieldError

	traceID := uuid.New().String()[:8]

	var fiberErr *fiber.Error
	if appErr, ok := apperrors.As(err); ok {
		code = appErr.HTTPStatus
		message = appErr.Message
		errorCode = appErr.Code
		fieldErrors = appErr.FieldErrors
	} else if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message

		switch code {
		case fiber.StatusBadRequest:
			errorCode = "BAD_REQUEST"
		case fiber.StatusUnauthorized:
			errorCode = "UNAUTHORIZED"
		case fiber.StatusForbidden:
			errorCode = apperrors.CodeForbidden
		case fiber.StatusNotFound:
			errorCode = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed:
			errorCode = "METHOD_NOT_ALLOWED"
		case fiber.StatusConflict:
			errorCode = "CONFLICT"
		case fiber.StatusUnprocessableEntity:
			errorCode = apperrors.CodeValidationFailed
		}
	}

	if code >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("trace_id", traceID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(ErrorResponse{
		Code:        errorCode,
		Message:     message,
		FieldErrors: fieldErrors,
		TraceID:     traceID,
	})
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}
