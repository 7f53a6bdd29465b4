package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Authentication and session errors
var (
	ErrMissingToken        = errors.New("missing authorization token")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrMissingSessionClaim = errors.New("token is not bound to a session")
	ErrUnknownUser         = errors.New("user not found for token")
	ErrSessionRevoked      = errors.New("session expired or revoked")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInactiveAccount     = errors.New("account is inactive")
	ErrSessionNotFound     = errors.New("session not found or already ended")
)

// Common reusable application errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden")
	ErrDuplicateAccount = errors.New("an account with this email already exists")
	ErrValidation       = errors.New("validation failed")
	ErrRateLimited      = errors.New("too many requests")
	ErrWriteConflict    = errors.New("concurrent update, try again")
	ErrInternal         = errors.New("internal server error")
)

// ValidationError carries field-level messages that are safe to show to the client.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Field is a shorthand for a single-field validation error.
func Field(name, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{name: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", ErrValidation.Error(), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// HTTPStatus maps an error from any layer to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrMissingSessionClaim),
		errors.Is(err, ErrUnknownUser),
		errors.Is(err, ErrSessionRevoked),
		errors.Is(err, ErrInactiveAccount),
		errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicateAccount),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrWriteConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message for the response body. Internal details
// stay in the server logs.
func PublicMessage(err error) string {
	for _, known := range []error{
		ErrMissingToken, ErrInvalidToken, ErrMissingSessionClaim, ErrUnknownUser,
		ErrSessionRevoked, ErrInvalidCredentials, ErrInactiveAccount, ErrSessionNotFound, ErrNotFound,
		ErrForbidden, ErrDuplicateAccount, ErrValidation, ErrRateLimited, ErrWriteConflict,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrInternal.Error()
}
