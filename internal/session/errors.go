package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is returned when the token signing secret is absent.
	ErrConfiguration = errors.New("token signing secret not configured")

	// ErrValidation is the parent of every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is the parent of every *AuthError.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is the parent of uniqueness failures such as ErrEmailTaken.
	ErrConflict = errors.New("conflict")

	// ErrTimeout is returned when a store or hasher call outlives the operation timeout.
	// It is transient; the authority never retries it.
	ErrTimeout = errors.New("operation timed out")

	// ErrAccountNotFound is returned by an AccountStore when no record matches.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken is returned when an account with the same email already exists.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", ErrConflict)
)

// AuthError is an authentication failure. Its message is safe to show to clients.
type AuthError struct {
	msg string
}

func (e *AuthError) Error() string { return e.msg }

func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = &AuthError{msg: "invalid credentials"}
	ErrMissingToken       = &AuthError{msg: "missing token"}
	ErrInvalidToken       = &AuthError{msg: "invalid or expired token"}
	ErrUnknownTokenUser   = &AuthError{msg: "invalid token user"}
	// ErrTokenSuperseded means a later login advanced the account's token version.
	ErrTokenSuperseded = &AuthError{msg: "token expired due to new login"}
)

// ValidationError names the input fields that are missing or malformed.
type ValidationError struct {
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PublicMessage returns the client-facing text for err, or "" when err carries
// nothing safe to expose.
func PublicMessage(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, ErrEmailTaken) {
		return "email already registered"
	}
	return ""
}

func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
