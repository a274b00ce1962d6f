package errors

import (
	"errors"
	"fmt"
)

// Common error types for the backend client and session reconciler
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no active session")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid token")

	// Row store errors
	ErrMultipleRows = errors.New("multiple rows returned for single-row query")
	ErrRemote       = errors.New("remote request failed")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
