// Package service holds the pure and near-pure building blocks of the envelope
// lifecycle: field geometry validation, one-time codes, signing links and signer
// session tokens.
package service

import (
	"fmt"
	"sort"
	"strings"

	docDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

// epsilon absorbs float rounding on edges such as 0.7 + 0.3.
const epsilon = 1e-9

// ViolationKind classifies a geometry problem.
type ViolationKind string

const (
	ViolationEmptyBox     ViolationKind = "empty_box"
	ViolationOutOfBounds  ViolationKind = "out_of_bounds"
	ViolationOverlap      ViolationKind = "overlap"
	ViolationPageNotFound ViolationKind = "page_not_found"
	ViolationFooterBand   ViolationKind = "footer_band"
)

// Box is a field rectangle on a 1-based page. Ref identifies the box in violations.
type Box struct {
	Ref    string
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (b Box) right() float64 { return b.X + b.Width }
func (b Box) top() float64   { return b.Y + b.Height }

// Overlaps reports whether two boxes on the same page share interior area.
// Boxes that only touch along an edge do not overlap.
func (b Box) Overlaps(o Box) bool {
	if b.Page != o.Page {
		return false
	}
	return b.X < o.right()-epsilon && o.X < b.right()-epsilon &&
		b.Y < o.top()-epsilon && o.Y < b.top()-epsilon
}

// Violation describes one rejected box.
type Violation struct {
	Ref     string        `json:"ref"`
	Page    int           `json:"page"`
	Kind    ViolationKind `json:"kind"`
	Other   string        `json:"other,omitempty"`
	Message string        `json:"message"`
}

// Result is the outcome of a validation run.
type Result struct {
	Valid      bool
	Violations []Violation
}

// Err returns nil for a valid result and a *FieldValidationError otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &FieldValidationError{Violations: r.Violations}
}

// FieldValidationError carries every violation found in one run.
type FieldValidationError struct {
	Violations []Violation
}

func (e *FieldValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "invalid field placement: " + strings.Join(msgs, "; ")
}

// Unwrap classifies geometry failures as invalid input.
func (e *FieldValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate checks every box against a pageWidth x pageHeight page (any consistent
// unit) and every pair of boxes sharing a page against each other. It must be given
// the complete proposed set, never a delta.
func Validate(boxes []Box, pageWidth, pageHeight float64) Result {
	var violations []Violation
	for _, b := range boxes {
		if v, ok := checkBounds(b, pageWidth, pageHeight); !ok {
			violations = append(violations, v)
		}
	}
	violations = append(violations, checkOverlaps(boxes)...)
	return newResult(violations)
}

// DocumentOptions tunes ValidateDocument.
type DocumentOptions struct {
	// FooterBand reserves this many points at the bottom of the last page.
	FooterBand float64
}

// ValidateDocument validates boxes given in page fractions against the document's
// pages, scaling each page's boxes to points first. Documents without detected
// sizes are treated as a single Letter page.
func ValidateDocument(boxes []Box, pages []docDomain.PageSize, opts DocumentOptions) Result {
	if len(pages) == 0 {
		pages = []docDomain.PageSize{docDomain.Letter}
	}
	lastPage := len(pages)

	var violations []Violation
	scaled := make([]Box, 0, len(boxes))

	for _, b := range boxes {
		if b.Page < 1 || b.Page > len(pages) {
			violations = append(violations, Violation{
				Ref:     b.Ref,
				Page:    b.Page,
				Kind:    ViolationPageNotFound,
				Message: fmt.Sprintf("field %s references page %d but the document has %d", b.Ref, b.Page, len(pages)),
			})
			continue
		}

		size := pages[b.Page-1]
		pt := Box{
			Ref:    b.Ref,
			Page:   b.Page,
			X:      b.X * size.Width,
			Y:      b.Y * size.Height,
			Width:  b.Width * size.Width,
			Height: b.Height * size.Height,
		}

		if v, ok := checkBounds(pt, size.Width, size.Height); !ok {
			violations = append(violations, v)
		} else if opts.FooterBand > 0 && pt.Page == lastPage && pt.Y < opts.FooterBand-epsilon {
			violations = append(violations, Violation{
				Ref:     b.Ref,
				Page:    b.Page,
				Kind:    ViolationFooterBand,
				Message: fmt.Sprintf("field %s intrudes into the reserved footer band", b.Ref),
			})
		}
		scaled = append(scaled, pt)
	}

	violations = append(violations, checkOverlaps(scaled)...)
	return newResult(violations)
}

func checkBounds(b Box, pageWidth, pageHeight float64) (Violation, bool) {
	if b.Width <= 0 || b.Height <= 0 {
		return Violation{
			Ref:     b.Ref,
			Page:    b.Page,
			Kind:    ViolationEmptyBox,
			Message: fmt.Sprintf("field %s must have a positive width and height", b.Ref),
		}, false
	}
	if b.X < -epsilon || b.Y < -epsilon || b.right() > pageWidth+epsilon || b.top() > pageHeight+epsilon {
		return Violation{
			Ref:     b.Ref,
			Page:    b.Page,
			Kind:    ViolationOutOfBounds,
			Message: fmt.Sprintf("field %s lies outside the bounds of page %d", b.Ref, b.Page),
		}, false
	}
	return Violation{}, true
}

// checkOverlaps is quadratic in the number of boxes per page.
func checkOverlaps(boxes []Box) []Violation {
	byPage := make(map[int][]Box)
	for _, b := range boxes {
		byPage[b.Page] = append(byPage[b.Page], b)
	}

	pages := make([]int, 0, len(byPage))
	for page := range byPage {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var violations []Violation
	for _, page := range pages {
		onPage := byPage[page]
		for i := 0; i < len(onPage); i++ {
			for j := i + 1; j < len(onPage); j++ {
				if onPage[i].Overlaps(onPage[j]) {
					violations = append(violations, Violation{
						Ref:     onPage[j].Ref,
						Page:    page,
						Kind:    ViolationOverlap,
						Other:   onPage[i].Ref,
						Message: fmt.Sprintf("field %s overlaps field %s on page %d", onPage[j].Ref, onPage[i].Ref, page),
					})
				}
			}
		}
	}
	return violations
}

func newResult(violations []Violation) Result {
	return Result{Valid: len(violations) == 0, Violations: violations}
}
