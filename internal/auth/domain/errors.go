package domain

import (
	"github.com/allisson/esign/internal/errors"
)

// Authentication errors.
var (
	// ErrOwnerNotFound indicates an owner with the specified ID was not found.
	ErrOwnerNotFound = errors.Wrap(errors.ErrNotFound, "owner not found")

	// ErrTokenNotFound indicates no token matches the given hash.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrInvalidCredentials covers unknown owners, wrong secrets and unusable tokens alike.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrOwnerInactive indicates the owner exists but is disabled.
	ErrOwnerInactive = errors.Wrap(errors.ErrForbidden, "owner is inactive")

	// ErrOwnerLocked indicates too many failed attempts.
	ErrOwnerLocked = errors.Wrap(errors.ErrForbidden, "owner is temporarily locked")
)
