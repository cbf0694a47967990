// Package domain defines the owner authentication model.
//
// Owners are API clients that upload documents and compose envelopes. They authenticate
// with their id and a generated secret and receive short-lived opaque bearer tokens.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Owner is an authenticated API client.
type Owner struct {
	ID             uuid.UUID
	Secret         string //nolint:gosec // Argon2id hash, never plaintext
	Name           string
	IsActive       bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
}

// IsLocked reports whether the owner is locked out at the given time.
func (o *Owner) IsLocked(now time.Time) bool {
	return o.LockedUntil != nil && now.Before(*o.LockedUntil)
}

// CreateOwnerInput contains the parameters for creating an owner. The secret is
// generated and cannot be chosen by the caller.
type CreateOwnerInput struct {
	Name     string
	IsActive bool
}

// CreateOwnerOutput is returned once on creation. PlainSecret is never retrievable again.
type CreateOwnerOutput struct {
	ID          uuid.UUID
	PlainSecret string
}

// IssueTokenInput carries owner credentials.
type IssueTokenInput struct {
	OwnerID     uuid.UUID
	OwnerSecret string
}

// IssueTokenOutput holds the plain bearer token, shown only once.
type IssueTokenOutput struct {
	PlainToken string
	ExpiresAt  time.Time
}
