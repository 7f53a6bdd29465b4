package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing token", ErrMissingToken, http.StatusUnauthorized},
		{"wrapped invalid token", fmt.Errorf("%w: signature", ErrInvalidToken), http.StatusForbidden},
		{"missing session claim", ErrMissingSessionClaim, http.StatusForbidden},
		{"unknown user", ErrUnknownUser, http.StatusForbidden},
		{"revoked session", ErrSessionRevoked, http.StatusForbidden},
		{"inactive", ErrInactiveAccount, http.StatusForbidden},
		{"duplicate", ErrDuplicateAccount, http.StatusBadRequest},
		{"credentials", ErrInvalidCredentials, http.StatusBadRequest},
		{"session not found", ErrSessionNotFound, http.StatusBadRequest},
		{"validation", Field("email", "required"), http.StatusBadRequest},
		{"not found", fmt.Errorf("find session: %w", ErrNotFound), http.StatusNotFound},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"write conflict", fmt.Errorf("save history: %w", ErrWriteConflict), http.StatusConflict},
		{"unknown", errors.New("mongo: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := fmt.Errorf("lookup strategy email+vendor: %w", ErrInvalidCredentials)
	assert.Equal(t, "invalid credentials", PublicMessage(err))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("dial tcp 10.0.0.3:27017")))
}

func TestValidationErrorIsValidation(t *testing.T) {
	err := NewValidationError(map[string]string{"password": "is required", "email": "is invalid"})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation failed (email: is invalid, password: is required)", err.Error())

	var vErr *ValidationError
	assert.True(t, errors.As(fmt.Errorf("register: %w", err), &vErr))
	assert.Len(t, vErr.Fields, 2)
}
