// Package domain defines envelopes, their signers and fields, and the lifecycle rules
// that govern them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an envelope.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusSent            Status = "SENT"
	StatusPartiallySigned Status = "PARTIALLY_SIGNED"
	StatusCompleted       Status = "COMPLETED"
	StatusDeclined        Status = "DECLINED"
	StatusVoided          Status = "VOIDED"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDeclined || s == StatusVoided
}

// IsOpenForSigning reports whether signers may view, verify, sign or decline.
func (s Status) IsOpenForSigning() bool {
	return s == StatusSent || s == StatusPartiallySigned
}

// HasSignedArtifact reports whether a complete signed PDF exists in this state.
func (s Status) HasSignedArtifact() bool {
	return s == StatusPartiallySigned || s == StatusCompleted
}

var transitions = map[Status][]Status{
	StatusDraft:           {StatusSent, StatusVoided},
	StatusSent:            {StatusPartiallySigned, StatusCompleted, StatusDeclined, StatusVoided},
	StatusPartiallySigned: {StatusPartiallySigned, StatusCompleted, StatusDeclined, StatusVoided},
}

// CanTransition reports whether from -> to is an allowed lifecycle move.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Envelope is a signing transaction over exactly one document.
type Envelope struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	DocumentID  uuid.UUID
	Status      Status
	Subject     string
	Message     string
	Sequential  bool
	SentAt      *time.Time
	CompletedAt *time.Time
	VoidedAt    *time.Time
	VoidReason  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Signers []*Signer
	Fields  []*Field
}

// Signer returns the signer with the given id.
func (e *Envelope) Signer(id uuid.UUID) (*Signer, bool) {
	for _, s := range e.Signers {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Field returns the field with the given id.
func (e *Envelope) Field(id uuid.UUID) (*Field, bool) {
	for _, f := range e.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// FieldsFor returns the fields assigned to one signer.
func (e *Envelope) FieldsFor(signerID uuid.UUID) []*Field {
	var fields []*Field
	for _, f := range e.Fields {
		if f.SignerID == signerID {
			fields = append(fields, f)
		}
	}
	return fields
}

// SigningParties returns the signers whose signature is required for completion.
func (e *Envelope) SigningParties() []*Signer {
	var parties []*Signer
	for _, s := range e.Signers {
		if s.Role == RoleSigner {
			parties = append(parties, s)
		}
	}
	return parties
}

// PendingBefore returns the SIGNER-role parties with a lower routing order than s that
// have not signed yet.
func (e *Envelope) PendingBefore(s *Signer) []*Signer {
	var pending []*Signer
	for _, other := range e.SigningParties() {
		if other.ID != s.ID && other.RoutingOrder < s.RoutingOrder && other.SignedAt == nil {
			pending = append(pending, other)
		}
	}
	return pending
}

// NextStatus derives the envelope status from its signers once it has been sent:
// any decline wins, COMPLETED holds exactly when every SIGNER-role party has signed,
// and a partial set of signatures yields PARTIALLY_SIGNED. Draft and terminal
// statuses are returned unchanged.
func NextStatus(current Status, signers []*Signer) Status {
	if current == StatusDraft || current.IsTerminal() {
		return current
	}

	parties, signed := 0, 0
	for _, s := range signers {
		if s.DeclinedAt != nil {
			return StatusDeclined
		}
		if s.Role != RoleSigner {
			continue
		}
		parties++
		if s.SignedAt != nil {
			signed++
		}
	}

	switch {
	case parties > 0 && signed == parties:
		return StatusCompleted
	case signed > 0:
		return StatusPartiallySigned
	default:
		return StatusSent
	}
}
