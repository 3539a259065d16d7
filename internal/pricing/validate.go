package pricing

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
)

var markupPattern = regexp.MustCompile(`<[^>]*>`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("nomarkup", func(fl validator.FieldLevel) bool {
		return !ContainsMarkup(fl.Field().String())
	})
	_ = v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		loc := Location(strings.ToLower(fl.Field().String()))
		return loc == "" || loc.Supported()
	})
	return v
}

// ContainsMarkup reports whether s holds anything shaped like an HTML tag.
func ContainsMarkup(s string) bool {
	return markupPattern.MatchString(s)
}

// ValidationError describes one rejected TripRequest field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets callers match validation failures with errors.Is(err, httpx.ErrValidation).
func (e *ValidationError) Unwrap() error {
	return httpx.ErrValidation
}

// ValidationErrors aggregates every violated field.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) Unwrap() error {
	return httpx.ErrValidation
}

// Validate checks req and returns the first violation as a *ValidationError.
func Validate(req TripRequest) error {
	errs := collect(req)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ValidateAll checks req and returns every violation as ValidationErrors.
func ValidateAll(req TripRequest) error {
	errs := collect(req)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func collect(req TripRequest) ValidationErrors {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: "request is malformed"}}
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		out = append(out, &ValidationError{Field: field, Message: messageFor(field, fe.Tag())})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func messageFor(field, tag string) string {
	switch field {
	case "agencyName":
		if tag == "nomarkup" {
			return "agencyName must not contain markup"
		}
		return "agencyName is required"
	case "paxCount":
		return "paxCount must be between 1 and 1000"
	case "travelDays":
		return "travelDays must be between 1 and 365"
	case "hotelRequirement.stars":
		return "hotelRequirement.stars must be 3, 4 or 5"
	case "hotelRequirement.rooms":
		return "hotelRequirement.rooms must be between 1 and 500"
	case "hotelRequirement.nights":
		return "hotelRequirement.nights must be between 0 and 365"
	case "hotelRequirement.location":
		return "hotelRequirement.location is not a supported city"
	default:
		return field + " is invalid"
	}
}
