package shared

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormStatus tags the outcome of a form submission.
type FormStatus int

const (
	// FormOK means the value passed validation.
	FormOK FormStatus = iota
	// FormInvalid means Errors holds one message key per failing field.
	FormInvalid
)

// FormResult is returned by submission handlers instead of aborting.
type FormResult[T any] struct {
	Status FormStatus
	Value  T
	Errors map[string]string
}

// OK reports whether the form passed validation.
func (r FormResult[T]) OK() bool {
	return r.Status == FormOK
}

// NewFormValidator returns a validator reporting fields by their form tag.
func NewFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateForm validates value and maps failures to "validation.<tag>" keys.
func ValidateForm[T any](v *validator.Validate, value T) FormResult[T] {
	err := v.Struct(value)
	if err == nil {
		return FormResult[T]{Status: FormOK, Value: value}
	}
	errs := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			if _, seen := errs[fieldErr.Field()]; !seen {
				errs[fieldErr.Field()] = "validation." + fieldErr.Tag()
			}
		}
	} else {
		errs["general"] = "validation.invalid"
	}
	return FormResult[T]{Status: FormInvalid, Value: value, Errors: errs}
}

// Invalid builds a FormInvalid result from externally reported field errors.
func Invalid[T any](value T, errs map[string]string) FormResult[T] {
	return FormResult[T]{Status: FormInvalid, Value: value, Errors: errs}
}
