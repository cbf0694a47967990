package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a party's function within an envelope.
type Role string

const (
	// RoleSigner must sign before the envelope can complete.
	RoleSigner Role = "SIGNER"
	// RoleCC receives notifications only.
	RoleCC Role = "CC"
	// RoleViewer may view the document and its signed artifact.
	RoleViewer Role = "VIEWER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleSigner || r == RoleCC || r == RoleViewer
}

// Signer is one party of an envelope. SignedAt and DeclinedAt are mutually
// exclusive and each is set at most once.
type Signer struct {
	ID            uuid.UUID
	EnvelopeID    uuid.UUID
	Email         string
	Name          string
	Role          Role
	RoutingOrder  int
	SigningToken  *string
	OTPHash       *string
	OTPExpiresAt  *time.Time
	OTPVerifiedAt *time.Time
	SignedAt      *time.Time
	DeclinedAt    *time.Time
	DeclineReason *string
	CreatedAt     time.Time
}

// HasActed reports whether the signer already signed or declined.
func (s *Signer) HasActed() bool {
	return s.SignedAt != nil || s.DeclinedAt != nil
}

// ClearOTP drops any outstanding code and its verification.
func (s *Signer) ClearOTP() {
	s.OTPHash = nil
	s.OTPExpiresAt = nil
	s.OTPVerifiedAt = nil
}

// CheckCanAct returns the state error preventing the signer from signing or declining.
func (s *Signer) CheckCanAct() error {
	switch {
	case s.SignedAt != nil:
		return ErrAlreadySigned
	case s.DeclinedAt != nil:
		return ErrAlreadyDeclined
	}
	return nil
}
