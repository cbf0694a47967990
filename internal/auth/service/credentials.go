// Package service provides credential primitives for owner authentication.
package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/esign/internal/errors"
)

const randomCredentialBytes = 32

// SecretService generates and verifies owner secrets.
type SecretService interface {
	// GenerateSecret returns a random secret and its Argon2id hash.
	GenerateSecret() (plainSecret string, hashedSecret string, err error)
	HashSecret(plainSecret string) (string, error)
	// CompareSecret is constant time and returns false on malformed hashes.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenService generates bearer tokens and their lookup hashes.
type TokenService interface {
	GenerateToken() (plainToken string, tokenHash string, err error)
	HashToken(plainToken string) string
}

type secretService struct {
	hasher *pwdhash.PasswordHasher
}

// NewSecretService creates a SecretService backed by Argon2id with the moderate policy.
func NewSecretService() SecretService {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		panic(err)
	}
	return &secretService{hasher: hasher}
}

func (s *secretService) GenerateSecret() (string, string, error) {
	plain, err := randomURLString()
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate owner secret")
	}
	hashed, err := s.HashSecret(plain)
	if err != nil {
		return "", "", err
	}
	return plain, hashed, nil
}

func (s *secretService) HashSecret(plainSecret string) (string, error) {
	hashed, err := s.hasher.Hash([]byte(plainSecret))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash owner secret")
	}
	return hashed, nil
}

func (s *secretService) CompareSecret(plainSecret string, hashedSecret string) bool {
	ok, err := s.hasher.Verify([]byte(plainSecret), hashedSecret)
	return err == nil && ok
}

type tokenService struct{}

// NewTokenService creates a TokenService. Tokens are 32 random bytes, base64url encoded,
// looked up by their hex SHA-256.
func NewTokenService() TokenService {
	return tokenService{}
}

func (t tokenService) GenerateToken() (string, string, error) {
	plain, err := randomURLString()
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate token")
	}
	return plain, t.HashToken(plain), nil
}

func (tokenService) HashToken(plainToken string) string {
	sum := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(sum[:])
}

func randomURLString() (string, error) {
	buf := make([]byte, randomCredentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
