package domain

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/m3rciful/assocbot/internal/identity"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator with the "nationalid" tag
// registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("nationalid", func(fl validator.FieldLevel) bool {
			return identity.ValidNationalID(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct checks v and converts the first failure into a
// ValidationError naming the field.
func ValidateStruct(v any, message string) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Field: fieldErrs[0].Field(), Message: message}
	}
	return err
}
