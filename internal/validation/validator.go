package validation

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps JSON field names to a list of validation error messages.
type FieldErrors map[string][]string

// ValidationError implements a DomainProblem (from internal/httpx) without importing it directly,
// by providing the required method set. This avoids cycles and lets httpx.ToProblem format it.
type ValidationError struct {
	summary string
	fields  FieldErrors
}

func (e *ValidationError) Error() string { return e.summary }

// Domain-problem methods (structural typing against httpx.DomainProblem)

func (e *ValidationError) ProblemCode() string    { return "ErrValidation" }
func (e *ValidationError) ProblemStatus() int     { return 400 }
func (e *ValidationError) ProblemTitle() string   { return "Validation error" }
func (e *ValidationError) ProblemDetail() string  { return e.summary }
func (e *ValidationError) ProblemTypeURI() string { return "urn:problem:validation-error" }
func (e *ValidationError) ProblemContext() any    { return map[string]any{"fields": e.fields} }

// Fields exposes the field map, mostly for tests and logging.
func (e *ValidationError) Fields() FieldErrors { return e.fields }

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		// Use JSON tag names instead of struct field names.
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.Split(fld.Tag.Get("json"), ",")[0]
			if name == "" || name == "-" {
				return lowerFirst(fld.Name)
			}
			return name
		})
		if err := instance.RegisterValidation("maxbytes", maxBytes); err != nil {
			panic(err)
		}
	})
	return instance
}

// maxBytes bounds the encoded size of a string. bcrypt rejects passwords over 72 bytes,
// which "max" cannot express for multibyte input.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// NewFieldError builds a ValidationError for a single field, for checks made outside struct tags.
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{
		summary: fmt.Sprintf("%s %s", field, message),
		fields:  FieldErrors{field: {message}},
	}
}

// ValidateStruct validates a struct instance according to `validate` tags.
// On success it returns nil. On failure it returns a *ValidationError with:
// - summary: "invalid <field>, and N other errors" or "validation failed"
// - fields:  map of JSON field name to list of messages
func ValidateStruct(v any) error {
	if err := get().Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make(FieldErrors)
			for _, fe := range verrs {
				field := fe.Field() // already JSON-tagged due to RegisterTagNameFunc
				fields[field] = append(fields[field], messageForTag(fe))
			}

			// Summarized detail, e.g. "invalid email, and 2 other errors"
			summary := summarize(fields)
			return &ValidationError{
				summary: summary,
				fields:  fields,
			}
		}
		// Non-standard error from validator, return a generic summary.
		return &ValidationError{
			summary: "validation failed",
			fields:  FieldErrors{},
		}
	}
	return nil
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		// Handle string length min
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "len":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be exactly %s characters", fe.Param())
		}
		return fmt.Sprintf("must have length %s", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "e164":
		return "must be a phone number in international format (e.g. +1234567890)"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid", "uuid4", "uuid7":
		return "must be a valid id"
	case "url", "http_url":
		return "must be a valid URL"
	case "eqfield":
		// Match other field; convert to JSON lower-camel if needed
		return fmt.Sprintf("must match %s", toJSONFieldName(fe.Param()))
	case "eq":
		// Used e.g. AcceptTerms eq=true
		if fe.Param() == "true" {
			// Make friendlier wording for common boolean accept terms
			if strings.Contains(strings.ToLower(fe.Field()), "terms") {
				return "must be accepted"
			}
			return "must be true"
		}
		return fmt.Sprintf("must equal %s", fe.Param())
	default:
		return "is invalid"
	}
}

func summarize(fields FieldErrors) string {
	// Prefer specific phrase for common cases like "invalid email"
	if msgs, ok := fields["email"]; ok {
		for _, m := range msgs {
			if strings.Contains(m, "valid email") {
				others := countOthers(fields, "email")
				if others > 0 {
					return fmt.Sprintf("invalid email, and %d other error%s", others, plural(others))
				}
				return "invalid email"
			}
		}
	}
	// Fallback: use first field: first message
	firstField, firstMsg := first(fields)
	if firstField != "" && firstMsg != "" {
		others := totalCount(fields) - 1
		if others > 0 {
			return fmt.Sprintf("%s %s, and %d other error%s", firstField, firstMsg, others, plural(others))
		}
		return fmt.Sprintf("%s %s", firstField, firstMsg)
	}
	return "validation failed"
}

func toJSONFieldName(structField string) string {
	// Convert typical struct field (e.g., ConfirmPassword) to lower-camel
	return lowerFirst(structField)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}

// first returns the alphabetically first field so summaries are stable.
func first(m FieldErrors) (string, string) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if list := m[k]; len(list) > 0 {
			return k, list[0]
		}
	}
	return "", ""
}

func totalCount(m FieldErrors) int {
	n := 0
	for _, list := range m {
		n += len(list)
	}
	return n
}

func countOthers(m FieldErrors, field string) int {
	n := 0
	for k, list := range m {
		if k == field {
			continue
		}
		n += len(list)
	}
	return n
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}