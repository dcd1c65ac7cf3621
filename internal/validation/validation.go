// Package validation provides user code validation utilities for the device flow
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// CodeLength is the number of digits in a user code
const CodeLength = 6

var codeRegex = regexp.MustCompile(fmt.Sprintf("^[0-9]{%d}$", CodeLength))

// ValidationError represents a code validation error
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid user code %q: %s", e.Code, e.Message)
}

// ValidateUserCode checks that a user code is a well-formed numeric code.
// Codes are accepted with or without the display separator.
func ValidateUserCode(code string) error {
	normalized := NormalizeCode(code)

	if len(normalized) != CodeLength {
		return &ValidationError{
			Code:    code,
			Message: fmt.Sprintf("length must be %d digits", CodeLength),
		}
	}

	if !codeRegex.MatchString(normalized) {
		return &ValidationError{
			Code:    code,
			Message: "code must contain only digits",
		}
	}

	return nil
}

// NormalizeCode converts a user code to canonical format for lookups
func NormalizeCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "-", "")
}

// FormatCode converts a normalized code to display format (XXX-XXX)
func FormatCode(code string) string {
	if len(code) < CodeLength {
		return code
	}
	mid := len(code) / 2
	return code[:mid] + "-" + code[mid:]
}
