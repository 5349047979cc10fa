package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct-tag validation on v using the package-wide validator
// instance.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func errInvalidKey(field, value string) error {
	return fmt.Errorf("%s %q must equal its sanitized form", field, value)
}
