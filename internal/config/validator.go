package config

import (
	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("extension_name", validateExtensionName)
	return v
}

// extension_name accepts short lower-case alphanumeric extensions without a dot.
func validateExtensionName(fl validator.FieldLevel) bool {
	ext := fl.Field().String()
	if ext == "" || len(ext) > 8 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
