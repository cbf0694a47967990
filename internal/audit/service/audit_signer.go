// Package service signs audit entries and resolves the signing key.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
)

const signingKeyInfo = "audit-log-signing-v1"

// AuditSigner produces and checks HMAC-SHA256 signatures over audit entries.
type AuditSigner interface {
	Sign(log *auditDomain.AuditLog) ([]byte, error)
	Verify(log *auditDomain.AuditLog) error
}

type auditSigner struct {
	signingKey []byte
}

// NewAuditSigner derives a 32-byte signing key from key material with HKDF-SHA256.
func NewAuditSigner(keyMaterial []byte) (AuditSigner, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("audit signing key is empty")
	}

	reader := hkdf.New(sha256.New, keyMaterial, nil, []byte(signingKeyInfo))
	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return &auditSigner{signingKey: signingKey}, nil
}

// canonicalize encodes the entry as
// id || envelope_id || event || actor || ip || user_agent || request_id || details || created_at
// with every variable-length field length-prefixed.
func canonicalize(log *auditDomain.AuditLog) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, log.ID[:]...)
	buf = append(buf, log.EnvelopeID[:]...)
	buf = appendLengthPrefixed(buf, []byte(log.Event))
	buf = appendLengthPrefixed(buf, []byte(log.Actor))
	buf = appendLengthPrefixed(buf, []byte(log.IPAddress))
	buf = appendLengthPrefixed(buf, []byte(log.UserAgent))
	buf = appendLengthPrefixed(buf, []byte(log.RequestID))

	if len(log.Details) > 0 {
		// encoding/json sorts map keys, which keeps the encoding deterministic
		details, err := json.Marshal(log.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal details: %w", err)
		}
		buf = appendLengthPrefixed(buf, details)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(log.CreatedAt.UnixNano()))
	return buf, nil
}

func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func (a *auditSigner) Sign(log *auditDomain.AuditLog) ([]byte, error) {
	canonical, err := canonicalize(log)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize log: %w", err)
	}

	mac := hmac.New(sha256.New, a.signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify returns ErrSignatureInvalid when the stored signature does not match.
func (a *auditSigner) Verify(log *auditDomain.AuditLog) error {
	expected, err := a.Sign(log)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(log.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}
