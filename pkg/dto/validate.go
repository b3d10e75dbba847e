package dto

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance with the custom rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("identifier", validIdentifier)
		validate = v
	})
	return validate
}

// Validate runs struct validation on v.
func Validate(v any) error {
	return Validator().Struct(v)
}

// ValidateVar validates a single value against a tag expression.
func ValidateVar(value any, tag string) error {
	return Validator().Var(value, tag)
}

// validIdentifier rejects blank ids and the placeholder strings browsers send
// when a client-side variable was never set.
func validIdentifier(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed != value {
		return false
	}
	return trimmed != "undefined" && trimmed != "null"
}

// IsEmptyIdentifier reports whether an id query parameter carries no usable value.
func IsEmptyIdentifier(id string) bool {
	return ValidateVar(id, "identifier") != nil
}
