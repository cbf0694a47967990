// Package validation provides custom validation rules for request DTOs.
package validation

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/esign/internal/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// WrapValidationError wraps validation errors as ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email validates email format.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// UUID validates a textual UUID.
var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// Fraction validates a float64 in [0, 1], the unit of normalized page coordinates.
var Fraction = validation.By(func(value interface{}) error {
	f, ok := value.(float64)
	if !ok {
		return validation.NewError("validation_fraction_type", "must be a number")
	}
	if f < 0 || f > 1 {
		return validation.NewError("validation_fraction", "must be between 0 and 1")
	}
	return nil
})

// PositiveFraction validates a float64 in (0, 1].
var PositiveFraction = validation.By(func(value interface{}) error {
	f, ok := value.(float64)
	if !ok {
		return validation.NewError("validation_fraction_type", "must be a number")
	}
	if f <= 0 || f > 1 {
		return validation.NewError("validation_positive_fraction", "must be greater than 0 and at most 1")
	}
	return nil
})
