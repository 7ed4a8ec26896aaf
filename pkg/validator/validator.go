// Package validator validates request structs with go-playground/validator
// and reports failures as translatable, field-keyed errors.
//
// Besides the built-in tags it registers:
//   - cpfcnpj: a CPF (11 digits) or CNPJ (14 digits), punctuation ignored
//   - phone: 10 to 13 digits, punctuation ignored
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
)

const (
	phoneMinDigits = 10
	phoneMaxDigits = 13
)

// Validator wraps a configured go-playground validator. It is safe for
// concurrent use.
type Validator struct {
	v *playground.Validate
}

// New returns a Validator that names fields by their json tag and knows
// the cpfcnpj and phone tags.
func New() *Validator {
	v := playground.New(playground.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	must(v.RegisterValidation("cpfcnpj", func(fl playground.FieldLevel) bool {
		n := len(Digits(fl.Field().String()))
		return n == 11 || n == 14
	}))
	must(v.RegisterValidation("phone", func(fl playground.FieldLevel) bool {
		n := len(Digits(fl.Field().String()))
		return n >= phoneMinDigits && n <= phoneMaxDigits
	}))

	return &Validator{v: v}
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("validator: %v", err))
	}
}

// Struct validates s and returns ValidationErrors on failure.
func (x *Validator) Struct(s any) error {
	err := x.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:             fieldPath(fe),
			Message:           message(fe),
			TranslationKey:    "validation." + fe.Tag(),
			TranslationValues: map[string]any{"param": fe.Param()},
		})
	}
	return out
}

// fieldPath drops the root struct name: "customerData.email".
func fieldPath(fe playground.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "cpfcnpj":
		return "must be a CPF (11 digits) or CNPJ (14 digits)"
	case "phone":
		return fmt.Sprintf("must have %d to %d digits", phoneMinDigits, phoneMaxDigits)
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "is invalid"
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Struct validates s with a shared default Validator.
func Struct(s any) error {
	defaultOnce.Do(func() { defaultV = New() })
	return defaultV.Struct(s)
}
