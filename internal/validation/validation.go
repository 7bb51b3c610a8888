// Package validation holds the field and cross-field rules shared by the API
// write path and the storage layer.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NonFieldErrors is the key under which cross-field errors are reported.
const NonFieldErrors = "non_field_errors"

// Common field messages.
const (
	MsgRequired = "This field is required."
	MsgNull     = "This field may not be null."
	MsgBlank    = "This field may not be blank."
)

// ErrHandledExceedsRelevant is the cross-field risk rule violation.
var ErrHandledExceedsRelevant = errors.New("Number of handled risks cannot exceed number of relevant risks")

var zipCodePattern = regexp.MustCompile(`^\d{4}$`)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their wire names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipCodePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validation: register zipcode: %v", err))
	}
}

// Entity is implemented by every persisted type that can normalize and check
// itself before a write.
type Entity interface {
	Normalize()
	Validate() error
}

// FieldErrors maps a field name to its error messages.
type FieldErrors map[string][]string

// Error implements the error interface.
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e[field], " ")))
	}
	return strings.Join(parts, "; ")
}

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether field has at least one error.
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err returns e as an error, or nil when it is empty.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Clean normalizes the entity and validates the result.
func Clean(e Entity) error {
	e.Normalize()
	return e.Validate()
}

// CleanWith runs Clean and folds its field errors into pre, which holds errors
// found while decoding the payload. Fields that already failed to decode keep
// their decode error, and cross-field rules are dropped because they ran on
// incomplete data.
func CleanWith(e Entity, pre FieldErrors) error {
	err := Clean(e)
	if len(pre) == 0 {
		return err
	}

	var fieldErrs FieldErrors
	if errors.As(err, &fieldErrs) {
		for field, msgs := range fieldErrs {
			if field == NonFieldErrors || pre.Has(field) {
				continue
			}
			pre[field] = msgs
		}
	}
	return pre
}

// Struct runs the struct tag rules on v.
func Struct(v interface{}) FieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{NonFieldErrors: {err.Error()}}
	}

	errs := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

// Point checks a longitude/latitude pair and reports problems under field.
func Point(field string, lon, lat float64) FieldErrors {
	errs := make(FieldErrors)
	if err := validate.Var(lon, "longitude"); err != nil {
		errs.Add(field, "Longitude must be between -180 and 180.")
	}
	if err := validate.Var(lat, "latitude"); err != nil {
		errs.Add(field, "Latitude must be between -90 and 90.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// CheckRisks enforces handled <= relevant. It is the single implementation of
// the rule; both the API and the repositories call it.
func CheckRisks(handled, relevant int) error {
	if handled > relevant {
		return FieldErrors{NonFieldErrors: {ErrHandledExceedsRelevant.Error()}}
	}
	return nil
}

// TitleCase trims s and upper-cases the first letter of every word.
func TitleCase(s string) string {
	// cases.Caser keeps state, so it is not shared between goroutines.
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgBlank
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "zipcode":
		return "ZIP code must be 4 digits."
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}
