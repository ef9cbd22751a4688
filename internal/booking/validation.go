package booking

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

const minPhoneDigits = 10

// RenterDetails is the confirmation form.
type RenterDetails struct {
	Name   string `json:"name" validate:"required,min=2"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"required,phone_digits"`
	Agreed bool   `json:"agreed" validate:"required"`
}

// ValidationErrors maps a form field to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "invalid renter details: " + strings.Join(parts, "; ")
}

var (
	renterValidatorOnce sync.Once
	renterValidator     *validator.Validate
)

func getValidator() *validator.Validate {
	renterValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// Registration only fails for an empty tag or nil func.
		_ = v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
			return countDigits(fl.Field().String()) >= minPhoneDigits
		})
		renterValidator = v
	})
	return renterValidator
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// Normalize trims surrounding whitespace from the text fields.
func (r RenterDetails) Normalize() RenterDetails {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	return r
}

// ValidateRenter returns ValidationErrors describing every invalid field, or nil.
func ValidateRenter(r RenterDetails) error {
	err := getValidator().Struct(r.Normalize())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "booking: validate renter")
	}

	out := ValidationErrors{}
	for _, fe := range fieldErrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		return "name must be at least 2 characters"
	case "email":
		return "enter a valid email address"
	case "phone":
		return fmt.Sprintf("phone must contain at least %d digits", minPhoneDigits)
	case "agreed":
		return "you must accept the rental terms"
	}
	return fe.Error()
}
