package validation

import (
	"encoding/base64"
	"fmt"

	validation "github.com/jellydator/validation"
)

// Base64 validates that a string is valid standard base64-encoded data.
var Base64 = Base64MaxBytes(0)

// Base64MaxBytes validates base64 data whose decoded size is at most maxBytes.
// A zero maxBytes disables the size check.
func Base64MaxBytes(maxBytes int) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, ok := value.(string)
		if !ok {
			return validation.NewError("validation_base64_type", "must be a string")
		}
		if s == "" {
			return nil
		}
		if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(s)) > maxBytes+2 {
			return validation.NewError(
				"validation_base64_size",
				fmt.Sprintf("must decode to at most %d bytes", maxBytes),
			)
		}
		if _, err := base64.StdEncoding.DecodeString(s); err != nil {
			return validation.NewError("validation_base64", "must be valid base64-encoded data")
		}
		return nil
	})
}
