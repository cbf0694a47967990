package service

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	apperrors "github.com/allisson/esign/internal/errors"
)

// NewSigningToken returns a random URL-safe token addressing one signer.
func NewSigningToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", apperrors.Wrap(err, "failed to generate signing token")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SigningLink is the public URL a signer opens to reach the envelope.
func SigningLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/v1/signing/" + token
}
