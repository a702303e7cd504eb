// Package validate provides a shared struct validator.
package validate

import "github.com/go-playground/validator/v10"

var v *validator.Validate

// Validate returns the shared validator instance.
func Validate() *validator.Validate {
	if v == nil {
		v = validator.New()
	}
	return v
}
