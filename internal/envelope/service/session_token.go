package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
)

const sessionIssuer = "esign"

// SessionClaims scope a session to exactly one signer of one envelope.
type SessionClaims struct {
	jwt.RegisteredClaims
	EnvelopeID string `json:"env"`
}

// SessionTokenService mints and checks HS256 signer session tokens.
type SessionTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenService creates a service signing with secret.
func NewSessionTokenService(secret []byte, ttl time.Duration) *SessionTokenService {
	return &SessionTokenService{
		secret: secret,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue returns a token for the signer and its expiry.
func (s *SessionTokenService) Issue(signerID, envelopeID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   signerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.Must(uuid.NewV7()).String(),
		},
		EnvelopeID: envelopeID.String(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authorize checks that token is valid and scoped to the given signer and envelope.
func (s *SessionTokenService) Authorize(token string, signerID, envelopeID uuid.UUID) error {
	if token == "" {
		return envelopeDomain.ErrInvalidSession
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return envelopeDomain.ErrInvalidSession
	}

	if claims.Subject != signerID.String() || claims.EnvelopeID != envelopeID.String() {
		return envelopeDomain.ErrInvalidSession
	}
	return nil
}
