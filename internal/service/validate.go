// Package service implements the admissions operations on top of a
// repository.Store: account registration and login, application
// submission and decisions, the master list and the program catalog.
package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/admissions-portal/portal/internal/apperrors"
)

var validate = newValidator()

// newValidator reports fields by their form name rather than the Go
// field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates s and converts the first failure to an
// apperrors validation error.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return apperrors.Validation(fe.Field(), formatValidationError(fe))
	}
	return apperrors.Validation("", err.Error())
}

func formatValidationError(e validator.FieldError) string {
	field := strings.ReplaceAll(e.Field(), "_", " ")
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return field + " must be at least " + e.Param()
	case "lte":
		return field + " must be at most " + e.Param()
	case "max":
		return field + " must be at most " + e.Param() + " characters"
	case "email":
		return field + " must be a valid email address"
	default:
		return field + " is invalid"
	}
}
