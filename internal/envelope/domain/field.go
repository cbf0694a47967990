package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the kind of annotation a field collects.
type FieldType string

const (
	FieldSignature FieldType = "SIGNATURE"
	FieldInitial   FieldType = "INITIAL"
	FieldDate      FieldType = "DATE"
	FieldText      FieldType = "TEXT"
	FieldCheckbox  FieldType = "CHECKBOX"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldSignature, FieldInitial, FieldDate, FieldText, FieldCheckbox:
		return true
	}
	return false
}

// TakesMark reports whether the signer's mark is drawn into this field.
func (t FieldType) TakesMark() bool {
	return t == FieldSignature || t == FieldInitial
}

// Field is an annotation box bound to one signer on one page. Coordinates are page
// fractions with the origin at the bottom-left corner.
type Field struct {
	ID         uuid.UUID
	EnvelopeID uuid.UUID
	DocumentID uuid.UUID
	SignerID   uuid.UUID
	Type       FieldType
	Page       int
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Required   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
