package apperror

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validator caches struct metadata, so one instance is shared.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the `validate` tags of s and reports failures per JSON field.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return FromValidator(err)
	}
	return nil
}
