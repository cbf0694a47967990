package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
)

func TestSessionTokenService(t *testing.T) {
	signerID := uuid.Must(uuid.NewV7())
	envelopeID := uuid.Must(uuid.NewV7())

	t.Run("Success_IssueAndAuthorize", func(t *testing.T) {
		svc := NewSessionTokenService([]byte("secret"), 30*time.Minute)

		token, expiresAt, err := svc.Issue(signerID, envelopeID)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), expiresAt, 5*time.Second)

		assert.NoError(t, svc.Authorize(token, signerID, envelopeID))
	})

	t.Run("Error_OtherSigner", func(t *testing.T) {
		svc := NewSessionTokenService([]byte("secret"), 30*time.Minute)

		token, _, err := svc.Issue(signerID, envelopeID)
		require.NoError(t, err)

		err = svc.Authorize(token, uuid.Must(uuid.NewV7()), envelopeID)
		assert.ErrorIs(t, err, envelopeDomain.ErrInvalidSession)
		err = svc.Authorize(token, signerID, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, envelopeDomain.ErrInvalidSession)
	})

	t.Run("Error_Expired", func(t *testing.T) {
		svc := NewSessionTokenService([]byte("secret"), time.Minute)

		token, _, err := svc.Issue(signerID, envelopeID)
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
		assert.ErrorIs(t, svc.Authorize(token, signerID, envelopeID), envelopeDomain.ErrInvalidSession)
	})

	t.Run("Error_WrongSecret", func(t *testing.T) {
		token, _, err := NewSessionTokenService([]byte("one"), time.Minute).Issue(signerID, envelopeID)
		require.NoError(t, err)

		err = NewSessionTokenService([]byte("two"), time.Minute).Authorize(token, signerID, envelopeID)
		assert.ErrorIs(t, err, envelopeDomain.ErrInvalidSession)
	})

	t.Run("Error_NoneAlgorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    sessionIssuer,
				Subject:   signerID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			EnvelopeID: envelopeID.String(),
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		svc := NewSessionTokenService([]byte("secret"), time.Minute)
		assert.ErrorIs(t, svc.Authorize(token, signerID, envelopeID), envelopeDomain.ErrInvalidSession)
	})

	t.Run("Error_Empty", func(t *testing.T) {
		svc := NewSessionTokenService([]byte("secret"), time.Minute)
		assert.ErrorIs(t, svc.Authorize("", signerID, envelopeID), envelopeDomain.ErrInvalidSession)
	})
}
