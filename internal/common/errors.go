// Package common defines shared constants and sentinel errors used across
// SecureCloud layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Credential errors. ErrorUnauthorized never tells the caller whether the
	// user is unknown or the password is wrong.
	ErrorUnauthorized = errors.New("invalid credentials")

	// Access control errors.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionExpired  = errors.New("session expired")

	// Vault errors.
	ErrVaultUnavailable = errors.New("vault unavailable")
	ErrIntegrity        = errors.New("ciphertext integrity check failed")
)

// DuplicateError reports a registration conflict on a unique user attribute.
type DuplicateError struct {
	// Field is "username" or "email".
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// Unwrap lets errors.Is(err, ErrorAlreadyExists) match.
func (e *DuplicateError) Unwrap() error {
	return ErrorAlreadyExists
}
