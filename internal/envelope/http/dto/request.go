// Package dto provides request and response bodies of the envelope and signing endpoints.
package dto

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	envelopeUseCase "github.com/allisson/esign/internal/envelope/usecase"
	customValidation "github.com/allisson/esign/internal/validation"
)

// MaxMarkImageBytes caps the decoded size of an uploaded signature image.
const MaxMarkImageBytes = 2 << 20

var (
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)

	roleRule = validation.In(
		string(envelopeDomain.RoleSigner),
		string(envelopeDomain.RoleCC),
		string(envelopeDomain.RoleViewer),
	)
	fieldTypeRule = validation.In(
		string(envelopeDomain.FieldSignature),
		string(envelopeDomain.FieldInitial),
		string(envelopeDomain.FieldDate),
		string(envelopeDomain.FieldText),
		string(envelopeDomain.FieldCheckbox),
	)
	markTypeRule = validation.In(
		string(envelopeDomain.MarkText),
		string(envelopeDomain.MarkImage),
	)
)

// SignerRequest is one party of a new envelope.
type SignerRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	RoutingOrder int    `json:"routing_order"`
}

// Validate checks the signer shape. An empty role defaults to SIGNER.
func (r SignerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, customValidation.Email, validation.Length(1, 255)),
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Role, roleRule),
		validation.Field(&r.RoutingOrder, validation.Min(0)),
	)
}

// Rect is a normalized box on one page; coordinates are page fractions with a
// bottom-left origin.
type Rect struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r *Rect) rules() []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(&r.Page, validation.Required, validation.Min(1)),
		validation.Field(&r.X, customValidation.Fraction),
		validation.Field(&r.Y, customValidation.Fraction),
		validation.Field(&r.Width, customValidation.PositiveFraction),
		validation.Field(&r.Height, customValidation.PositiveFraction),
	}
}

// CreateFieldRequest is a field declared together with its envelope. SignerIndex
// addresses the request's signers list.
type CreateFieldRequest struct {
	SignerIndex int    `json:"signer_index"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Rect
}

// Validate checks the field shape.
func (r CreateFieldRequest) Validate() error {
	rules := append(r.Rect.rules(),
		validation.Field(&r.SignerIndex, validation.Min(0)),
		validation.Field(&r.Type, validation.Required, fieldTypeRule),
	)
	return validation.ValidateStruct(&r, rules...)
}

// CreateEnvelopeRequest opens a draft envelope over an uploaded document.
type CreateEnvelopeRequest struct {
	DocumentID string               `json:"document_id"`
	Subject    string               `json:"subject"`
	Message    string               `json:"message"`
	Sequential bool                 `json:"sequential"`
	Signers    []SignerRequest      `json:"signers"`
	Fields     []CreateFieldRequest `json:"fields"`
}

// Validate checks the request shape. Field geometry is checked later against the
// document's pages.
func (r *CreateEnvelopeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DocumentID, validation.Required, customValidation.UUID),
		validation.Field(&r.Subject, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&r.Message, validation.Length(0, 4000)),
		validation.Field(&r.Signers, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Fields, validation.Length(0, 500)),
	)
}

// ToInput converts a validated request into use case input.
func (r *CreateEnvelopeRequest) ToInput() envelopeUseCase.CreateEnvelopeInput {
	in := envelopeUseCase.CreateEnvelopeInput{
		DocumentID: uuid.MustParse(r.DocumentID),
		Subject:    r.Subject,
		Message:    r.Message,
		Sequential: r.Sequential,
		Signers:    make([]envelopeUseCase.SignerInput, 0, len(r.Signers)),
		Fields:     make([]envelopeUseCase.FieldInput, 0, len(r.Fields)),
	}
	for i, s := range r.Signers {
		role := envelopeDomain.Role(s.Role)
		if role == "" {
			role = envelopeDomain.RoleSigner
		}
		order := s.RoutingOrder
		if order == 0 {
			order = i + 1
		}
		in.Signers = append(in.Signers, envelopeUseCase.SignerInput{
			Email:        s.Email,
			Name:         s.Name,
			Role:         role,
			RoutingOrder: order,
		})
	}
	for _, f := range r.Fields {
		in.Fields = append(in.Fields, envelopeUseCase.FieldInput{
			SignerIndex: f.SignerIndex,
			Type:        envelopeDomain.FieldType(f.Type),
			Page:        f.Page,
			X:           f.X,
			Y:           f.Y,
			Width:       f.Width,
			Height:      f.Height,
			Required:    f.Required,
		})
	}
	return in
}

// FieldRequest adds or replaces a field of a draft envelope.
type FieldRequest struct {
	SignerID string `json:"signer_id"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Rect
}

// Validate checks the field shape.
func (r *FieldRequest) Validate() error {
	rules := append(r.Rect.rules(),
		validation.Field(&r.SignerID, validation.Required, customValidation.UUID),
		validation.Field(&r.Type, validation.Required, fieldTypeRule),
	)
	return validation.ValidateStruct(r, rules...)
}

// ToInput converts a validated request into use case input.
func (r *FieldRequest) ToInput() envelopeUseCase.FieldInput {
	return envelopeUseCase.FieldInput{
		SignerID: uuid.MustParse(r.SignerID),
		Type:     envelopeDomain.FieldType(r.Type),
		Page:     r.Page,
		X:        r.X,
		Y:        r.Y,
		Width:    r.Width,
		Height:   r.Height,
		Required: r.Required,
	}
}

// VoidRequest cancels an envelope.
type VoidRequest struct {
	Reason string `json:"reason"`
}

// Validate checks the request shape.
func (r *VoidRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank, validation.Length(1, 1000)),
	)
}

// VerifyOTPRequest carries the code a signer received.
type VerifyOTPRequest struct {
	Code string `json:"code"`
}

// Validate checks the request shape.
func (r *VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), validation.Match(digitsRegex)),
	)
}

// PlacementRequest positions a mark freely on the document at sign time.
type PlacementRequest struct {
	Rect
}

// Validate checks the placement shape.
func (r PlacementRequest) Validate() error {
	return validation.ValidateStruct(&r, r.Rect.rules()...)
}

// SignRequest is a signer's submission.
type SignRequest struct {
	MarkType             string            `json:"mark_type"`
	MarkText             string            `json:"mark_text"`
	MarkImage            string            `json:"mark_image"`
	Consent              bool              `json:"consent"`
	ConsentText          string            `json:"consent_text"`
	Placement            *PlacementRequest `json:"placement"`
	SuppressMarkMetadata bool              `json:"suppress_mark_metadata"`
	FieldValues          map[string]string `json:"field_values"`
	DeviceFingerprint    string            `json:"device_fingerprint"`
}

// Validate checks the request shape. Whether the mark fits its targets is decided by
// the use case.
func (r *SignRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MarkType, validation.Required, markTypeRule),
		validation.Field(&r.MarkText,
			validation.When(r.MarkType == string(envelopeDomain.MarkText),
				validation.Required, customValidation.NotBlank, validation.Length(1, 200)),
		),
		validation.Field(&r.MarkImage,
			validation.When(r.MarkType == string(envelopeDomain.MarkImage), validation.Required),
			customValidation.Base64MaxBytes(MaxMarkImageBytes),
		),
		validation.Field(&r.ConsentText, validation.Length(0, 2000)),
		validation.Field(&r.Placement),
		validation.Field(&r.FieldValues, validation.By(validateFieldValues)),
		validation.Field(&r.DeviceFingerprint, validation.Length(0, 512)),
	)
}

func validateFieldValues(value interface{}) error {
	values, _ := value.(map[string]string)
	for id, v := range values {
		if _, err := uuid.Parse(id); err != nil {
			return validation.NewError("validation_field_id", fmt.Sprintf("%q is not a valid field id", id))
		}
		if len(v) > 1000 {
			return validation.NewError("validation_field_value", "values must be at most 1000 characters")
		}
	}
	return nil
}

// ToInput converts a validated request into use case input.
func (r *SignRequest) ToInput(sessionToken string) envelopeUseCase.SignInput {
	in := envelopeUseCase.SignInput{
		SessionToken:         sessionToken,
		MarkType:             envelopeDomain.MarkType(r.MarkType),
		MarkText:             r.MarkText,
		Consent:              r.Consent,
		ConsentText:          r.ConsentText,
		SuppressMarkMetadata: r.SuppressMarkMetadata,
		DeviceFingerprint:    r.DeviceFingerprint,
	}
	if r.MarkImage != "" {
		in.MarkImage, _ = base64.StdEncoding.DecodeString(r.MarkImage)
	}
	if r.Placement != nil {
		in.Placement = &envelopeDomain.Placement{
			Page:   r.Placement.Page,
			X:      r.Placement.X,
			Y:      r.Placement.Y,
			Width:  r.Placement.Width,
			Height: r.Placement.Height,
		}
	}
	if len(r.FieldValues) > 0 {
		in.FieldValues = make(map[uuid.UUID]string, len(r.FieldValues))
		for id, v := range r.FieldValues {
			in.FieldValues[uuid.MustParse(id)] = v
		}
	}
	return in
}

// DeclineRequest refuses to sign.
type DeclineRequest struct {
	Reason string `json:"reason"`
}

// Validate checks the request shape.
func (r *DeclineRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Length(0, 1000)),
	)
}

// FingerprintRequest carries an opaque device fingerprint.
type FingerprintRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// Validate checks the request shape.
func (r *FingerprintRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Fingerprint, validation.Required, customValidation.NotBlank, validation.Length(1, 512)),
	)
}
