// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. Use cases wrap these sentinels and the HTTP
// layer maps them to status codes.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated owner doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrStateConflict indicates the operation is not allowed in the current
	// lifecycle state of an envelope or signer.
	ErrStateConflict = errors.New("state conflict")

	// ErrAuthChallenge indicates a failed, missing or expired one-time code.
	ErrAuthChallenge = errors.New("auth challenge failed")

	// ErrIntegrityViolation indicates stored content no longer matches its recorded hash.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrStorage indicates the content store could not read or write an object.
	ErrStorage = errors.New("storage error")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
