package apperrors

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// InvalidDataMessage is the message of validation errors built from Fields
const InvalidDataMessage = "The given data was invalid."

// Fields collects per-field validation messages. Only the first message for a
// field is kept.
type Fields map[string]string

// Add records message for field unless the field already failed
func (f Fields) Add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

// Required fails field when value is blank and reports whether it passed
func (f Fields) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f.Add(field, fmt.Sprintf("The %s field is required.", humanize(field)))
		return false
	}
	return true
}

// MaxLength fails field when value is longer than max characters
func (f Fields) MaxLength(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		f.Add(field, fmt.Sprintf("The %s may not be greater than %d characters.", humanize(field), max))
	}
}

// Err returns a validation error, or nil when no field failed
func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(InvalidDataMessage, map[string]string(f))
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
