package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input before anything is written.
// Row is 1-based and counts the CSV header line; zero means no row applies.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

// Known identity provider error codes.
const (
	AuthInvalidCredentials = "invalid-credentials"
	AuthWrongPassword      = "wrong-password"
	AuthUserNotFound       = "user-not-found"
	AuthAdminNotFound      = "admin-not-found"
	AuthEmailInUse         = "email-already-in-use"
	AuthUserDisabled       = "user-disabled"
	AuthSessionExpired     = "session-expired"
)

// AuthError is a sign-in or registration failure reported by the identity provider.
type AuthError struct {
	Code string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Code
}

// TransientError wraps a storage or network failure. The operation may be
// retried by the user; nothing retries it automatically.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError unless it is nil, ErrNotFound, or
// already classified.
func Transient(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}
