package domain

import (
	"time"

	"github.com/google/uuid"
)

// MarkType is the form of a signer's mark.
type MarkType string

const (
	MarkImage MarkType = "IMAGE"
	MarkText  MarkType = "TEXT"
)

// Valid reports whether m is a known mark type.
func (m MarkType) Valid() bool {
	return m == MarkImage || m == MarkText
}

// Placement is where a mark or a field value was drawn, in page fractions.
type Placement struct {
	FieldID *uuid.UUID `json:"field_id,omitempty"`
	Page    int        `json:"page"`
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	Value   string     `json:"value,omitempty"`
}

// Signature is the captured mark of one signer, upserted by signer id.
type Signature struct {
	ID          uuid.UUID
	SignerID    uuid.UUID
	EnvelopeID  uuid.UUID
	Consent     bool
	ConsentText string
	MarkType    MarkType
	ImagePath   *string
	TextContent *string
	Placements  []Placement
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FreePlacements returns the placements not bound to a pre-defined field.
func (s *Signature) FreePlacements() []Placement {
	var free []Placement
	for _, p := range s.Placements {
		if p.FieldID == nil {
			free = append(free, p)
		}
	}
	return free
}
