// Package dto provides request and response bodies of the token endpoint.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/esign/internal/validation"
)

// IssueTokenRequest carries owner credentials.
type IssueTokenRequest struct {
	OwnerID     string `json:"owner_id"`
	OwnerSecret string `json:"owner_secret"` //nolint:gosec // request field, never logged
}

// Validate checks the request shape.
func (r *IssueTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID, validation.Required, customValidation.UUID),
		validation.Field(&r.OwnerSecret, validation.Required, customValidation.NotBlank),
	)
}

// IssueTokenResponse is returned once per issued token.
type IssueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
