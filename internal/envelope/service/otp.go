package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/allisson/go-pwdhash"

	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

// Hasher hashes and verifies secrets. *pwdhash.PasswordHasher satisfies it.
type Hasher interface {
	Hash(password []byte) (string, error)
	Verify(password []byte, encoded string) (bool, error)
}

// NewArgon2Hasher returns the Argon2id hasher used for one-time codes.
func NewArgon2Hasher() (Hasher, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, err
	}
	return hasher, nil
}

// OTPChallenge issues and checks time-boxed numeric codes stored as hashes on the
// signer record.
type OTPChallenge struct {
	hasher Hasher
	length int
	ttl    time.Duration
	now    func() time.Time
}

// OTPOption customizes an OTPChallenge.
type OTPOption func(*OTPChallenge)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) OTPOption {
	return func(o *OTPChallenge) {
		o.now = now
	}
}

// NewOTPChallenge creates a challenge issuing codes of length digits valid for ttl.
func NewOTPChallenge(hasher Hasher, length int, ttl time.Duration, opts ...OTPOption) *OTPChallenge {
	if length <= 0 {
		length = 6
	}
	o := &OTPChallenge{
		hasher: hasher,
		length: length,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate creates a fresh code for the signer, replacing any previous code and its
// verification. Only the hash is kept on the signer; the plaintext is returned once.
func (o *OTPChallenge) Generate(signer *envelopeDomain.Signer) (string, error) {
	code, err := o.randomCode()
	if err != nil {
		return "", err
	}

	hash, err := o.hasher.Hash([]byte(code))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash one-time code")
	}

	expiresAt := o.now().Add(o.ttl)
	signer.ClearOTP()
	signer.OTPHash = &hash
	signer.OTPExpiresAt = &expiresAt
	return code, nil
}

// Verify reports whether code matches the signer's outstanding, unexpired code.
// It never returns an error: a missing, expired or mismatched code is false.
func (o *OTPChallenge) Verify(signer *envelopeDomain.Signer, code string) bool {
	if signer.OTPHash == nil || signer.OTPExpiresAt == nil || code == "" {
		return false
	}
	if o.Expired(signer) {
		return false
	}
	if len(code) != o.length {
		return false
	}

	ok, err := o.hasher.Verify([]byte(code), *signer.OTPHash)
	if err != nil {
		return false
	}
	return ok
}

// Expired reports whether the signer holds a code whose window has passed.
func (o *OTPChallenge) Expired(signer *envelopeDomain.Signer) bool {
	return signer.OTPExpiresAt != nil && !o.now().Before(*signer.OTPExpiresAt)
}

// IsVerified reports whether the signer passed verification of a still-valid code.
func (o *OTPChallenge) IsVerified(signer *envelopeDomain.Signer) bool {
	return signer.OTPVerifiedAt != nil && signer.OTPHash != nil && !o.Expired(signer)
}

// Now exposes the challenge clock so callers stamp times consistently.
func (o *OTPChallenge) Now() time.Time {
	return o.now()
}

func (o *OTPChallenge) randomCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(o.length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to generate one-time code")
	}
	return fmt.Sprintf("%0*d", o.length, n), nil
}
