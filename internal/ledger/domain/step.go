// Package domain defines the append-only history of signing steps per document.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/errors"
)

var (
	// ErrStepConflict indicates another step with the same number was recorded concurrently.
	ErrStepConflict = errors.Wrap(errors.ErrConflict, "signing step already recorded")

	// ErrIntegrityMismatch indicates the current artifact does not match the ledger.
	ErrIntegrityMismatch = errors.Wrap(errors.ErrIntegrityViolation, "document artifact does not match its recorded hash")
)

// SignerSnapshot freezes the signer identity at signing time.
type SignerSnapshot struct {
	SignerID uuid.UUID
	Email    string
	Name     string
}

// Step is one immutable ledger entry. Step numbers are 1-based, gapless and scoped
// per document; ArtifactHash is the SHA-256 of the bytes stored at ArtifactPath.
type Step struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	EnvelopeID   uuid.UUID
	SignerID     uuid.UUID
	SignerEmail  string
	SignerName   string
	Step         int
	ArtifactPath string
	ArtifactHash string
	CreatedAt    time.Time
}

// Verification is the result of re-hashing one stored artifact.
type Verification struct {
	Path         string `json:"path"`
	RecordedHash string `json:"recorded_hash"`
	CurrentHash  string `json:"current_hash"`
	Valid        bool   `json:"valid"`
}

// StepVerification pairs a step with the verification of its artifact.
type StepVerification struct {
	Step         *Step
	Verification Verification
}

// Report summarizes a document's signature history.
type Report struct {
	DocumentID     uuid.UUID
	OriginalHash   string
	Steps          []*Step
	IntegrityValid bool
}
