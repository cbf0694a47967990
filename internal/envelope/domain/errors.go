package domain

import (
	"github.com/allisson/esign/internal/errors"
)

// Envelope lifecycle errors.
var (
	ErrEnvelopeNotFound = errors.Wrap(errors.ErrNotFound, "envelope not found")
	ErrSignerNotFound   = errors.Wrap(errors.ErrNotFound, "signer not found")
	ErrFieldNotFound    = errors.Wrap(errors.ErrNotFound, "field not found")

	ErrEnvelopeNotDraft    = errors.Wrap(errors.ErrStateConflict, "envelope is not in draft")
	ErrEnvelopeNotOpen     = errors.Wrap(errors.ErrStateConflict, "envelope is not open for signing")
	ErrEnvelopeTerminal    = errors.Wrap(errors.ErrStateConflict, "envelope is already in a terminal state")
	ErrEnvelopeNotComplete = errors.Wrap(errors.ErrStateConflict, "envelope is not completed")
	ErrNotReady            = errors.Wrap(errors.ErrStateConflict, "signed artifact is not available yet")
	ErrAlreadySigned       = errors.Wrap(errors.ErrStateConflict, "signer has already signed")
	ErrAlreadyDeclined     = errors.Wrap(errors.ErrStateConflict, "signer has already declined")
	ErrOutOfOrder          = errors.Wrap(errors.ErrStateConflict, "earlier signers in the routing order have not signed yet")

	ErrRoleCannotSign = errors.Wrap(errors.ErrForbidden, "signer role cannot sign or decline")

	ErrNoSigners            = errors.Wrap(errors.ErrInvalidInput, "envelope has no signers")
	ErrDuplicateSignerEmail = errors.Wrap(errors.ErrInvalidInput, "signer emails must be unique within an envelope")
	ErrUnknownSigner        = errors.Wrap(errors.ErrInvalidInput, "field references an unknown signer")
	ErrInvalidRole          = errors.Wrap(errors.ErrInvalidInput, "invalid signer role")
	ErrInvalidFieldType     = errors.Wrap(errors.ErrInvalidInput, "invalid field type")
	ErrConsentRequired      = errors.Wrap(errors.ErrInvalidInput, "consent is required to sign")
	ErrInvalidMark          = errors.Wrap(errors.ErrInvalidInput, "a text or image mark is required")
	ErrMissingFieldValue    = errors.Wrap(errors.ErrInvalidInput, "a required field has no value")

	ErrOTPNotVerified = errors.Wrap(errors.ErrAuthChallenge, "one-time code has not been verified")
	ErrInvalidOTP     = errors.Wrap(errors.ErrAuthChallenge, "one-time code is invalid or expired")

	ErrInvalidSession = errors.Wrap(errors.ErrUnauthorized, "signing session is invalid or expired")

	ErrArtifactIntegrity = errors.Wrap(errors.ErrIntegrityViolation, "stored artifact does not match its recorded hash")
)
