package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Validation errors: the request is rejected before any state change.
var (
	ErrEmptyUserID      = fmt.Errorf("user id is required")
	ErrEmptyContent     = fmt.Errorf("message content is required")
	ErrMissingRecipient = fmt.Errorf("recipient is required")
	ErrContentTooLong   = fmt.Errorf("message content exceeds the maximum length")
	ErrEmptyEmoji       = fmt.Errorf("emoji is required")
	ErrInvalidPassword  = fmt.Errorf("password does not meet complexity requirements")
)

// Not-found errors.
var (
	ErrMessageNotFound = fmt.Errorf("message not found")
	ErrUserNotFound    = fmt.Errorf("user not found")
)

// Auth errors.
var (
	ErrUserAlreadyExists  = fmt.Errorf("a user with this email already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUnauthorized       = fmt.Errorf("caller is not bound to a user identity")
)

// Infrastructure errors.
var (
	ErrStorage     = fmt.Errorf("storage failure")
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// MapToHTTPStatus converts a domain error into the HTTP status the REST
// surface should answer with. Unknown errors map to 500.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEmptyUserID),
		errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrMissingRecipient),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrEmptyEmoji),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
