// Package domain defines the append-only envelope audit trail.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/errors"
)

// ErrSignatureInvalid indicates an audit log entry failed HMAC verification.
var ErrSignatureInvalid = errors.Wrap(errors.ErrIntegrityViolation, "audit log signature is invalid")

// Event names one auditable action on an envelope.
type Event string

const (
	EventCreated                   Event = "CREATED"
	EventSent                      Event = "SENT"
	EventViewed                    Event = "VIEWED"
	EventOTPRequested              Event = "OTP_REQUESTED"
	EventOTPVerified               Event = "OTP_VERIFIED"
	EventSigned                    Event = "SIGNED"
	EventDeclined                  Event = "DECLINED"
	EventCompleted                 Event = "COMPLETED"
	EventVoided                    Event = "VOIDED"
	EventFieldAdded                Event = "FIELD_ADDED"
	EventFieldUpdated              Event = "FIELD_UPDATED"
	EventFieldDeleted              Event = "FIELD_DELETED"
	EventDeviceFingerprintCaptured Event = "DEVICE_FINGERPRINT_CAPTURED"
)

// ActorSystem is recorded for events not caused by an owner or signer.
const ActorSystem = "system"

// AuditLog is one immutable audit entry. Signature is an HMAC-SHA256 over the
// entry's canonical form; IsSigned is false when no signing key was configured.
type AuditLog struct {
	ID         uuid.UUID
	EnvelopeID uuid.UUID
	Event      Event
	Actor      string
	IPAddress  string
	UserAgent  string
	RequestID  string
	Details    map[string]any
	Signature  []byte
	IsSigned   bool
	CreatedAt  time.Time
}
