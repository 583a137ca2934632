package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// FromValidation turns a binding or validator failure into a Validation
// error naming the first failed field. Anything else, such as malformed
// JSON, becomes a generic invalid-body error.
func FromValidation(err error) *Error {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return Validation("invalid request body")
	}

	fe := fieldErrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return Validation(field + " is required")
	case "email":
		return Validation("a valid email is required")
	case "min":
		return Validation(fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
	case "max":
		return Validation(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "oneof":
		return Validation(fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
	}
	return Validation(field + " is invalid")
}

func lowerFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToLower(r)) + s[i+len(string(r)):]
	}
	return s
}
