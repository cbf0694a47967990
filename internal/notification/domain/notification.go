package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outbox event types.
const (
	EventSigningInvitation = "signing.invitation"
	EventSigningOTP        = "signing.otp"
	EventEnvelopeCompleted = "envelope.completed"
)

// Invitation asks a signer to review and sign an envelope.
type Invitation struct {
	EnvelopeID   uuid.UUID `json:"envelope_id"`
	SignerID     uuid.UUID `json:"signer_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	DocumentName string    `json:"document_name"`
	SigningLink  string    `json:"signing_link"`
	OTP          string    `json:"otp"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
}

// OTPDelivery carries a freshly requested one-time code.
type OTPDelivery struct {
	EnvelopeID  uuid.UUID `json:"envelope_id"`
	SignerID    uuid.UUID `json:"signer_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	SigningLink string    `json:"signing_link"`
	OTP         string    `json:"otp"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Recipient is one party notified of completion.
type Recipient struct {
	SignerID    uuid.UUID `json:"signer_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	SigningLink string    `json:"signing_link,omitempty"`
}

// Completion announces that every signer has signed.
type Completion struct {
	EnvelopeID   uuid.UUID   `json:"envelope_id"`
	Subject      string      `json:"subject"`
	DocumentName string      `json:"document_name"`
	ArtifactHash string      `json:"artifact_hash"`
	CompletedAt  time.Time   `json:"completed_at"`
	Recipients   []Recipient `json:"recipients"`
}

// Address is a delivery target.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Notification is a rendered message handed to a Notifier. Body may contain a
// one-time code and must never be logged.
type Notification struct {
	EventID    uuid.UUID `json:"event_id"`
	Type       string    `json:"type"`
	EnvelopeID uuid.UUID `json:"envelope_id"`
	To         []Address `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Link       string    `json:"link,omitempty"`
}
