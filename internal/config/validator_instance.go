package config

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	stepIDPattern          = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	placeholderNamePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		// Loop children are reported as "<loop>/<child>", so ids never contain a slash.
		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		// Variables written by steps must be addressable as ${NAME}.
		_ = v.RegisterValidation("placeholder_name", func(fl validator.FieldLevel) bool {
			return placeholderNamePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns a configured validator instance for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}
