package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Is reports whether err carries the given application error code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NotAuthorized signals a participant-set mismatch on a conversation. It is
// never retried; reaching it through normal navigation is a logic error.
func NotAuthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "NOT_AUTHORIZED",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

// TransientFetch wraps a network or backend failure. Callers may retry the
// same operation.
func TransientFetch(message string, err error) *AppError {
	return &AppError{
		Code:    "TRANSIENT_FETCH",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// EmptyMessage rejects a send with neither trimmed content nor an attachment.
func EmptyMessage() *AppError {
	return &AppError{
		Code:    "EMPTY_MESSAGE",
		Message: "message requires content or an attachment",
		Status:  http.StatusBadRequest,
	}
}

// UploadFailed signals that the attachment upload failed before any message
// insert was attempted.
func UploadFailed(err error) *AppError {
	return &AppError{
		Code:    "UPLOAD_FAILED",
		Message: "attachment upload failed",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// SubscriptionLost signals that the realtime transport could not be
// established or dropped; the caller falls back to its last fetched state.
func SubscriptionLost(err error) *AppError {
	return &AppError{
		Code:    "SUBSCRIPTION_LOST",
		Message: "realtime subscription unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}
