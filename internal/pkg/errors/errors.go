// Package errors defines the application error type returned by services and
// rendered by the HTTP error handler.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrChannelUnavailable = errors.New("channel unavailable")
)

// Error codes exposed to API clients.
const (
	CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	CodeTaskNotFound         = "TASK_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUnknownEventType     = "UNKNOWN_EVENT_TYPE"
	CodeForbidden            = "FORBIDDEN"
	CodeInternal             = "INTERNAL_ERROR"
)

// AppError carries an HTTP status and a machine-readable code.
type AppError struct {
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	HTTPStatus  int          `json:"-"`
	FieldErrors []FieldError `json:"field_errors,omitempty"`
	Err         error        `json:"-"`
}

// FieldError describes a field-level validation failure.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// WithFieldErrors attaches field-level errors.
func (e *AppError) WithFieldErrors(fieldErrors []FieldError) *AppError {
	if e == nil || len(fieldErrors) == 0 {
		return e
	}
	e.FieldErrors = fieldErrors
	return e
}

func NotFound(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusNotFound, Err: ErrNotFound}
}

func BadRequest(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusBadRequest, Err: ErrInvalidInput}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden, Err: ErrForbidden}
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
