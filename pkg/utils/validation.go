package utils

import (
	"strings"
	"unicode"
)

const MinPasswordLength = 6

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidatePassword enforces the account password policy:
// at least MinPasswordLength characters and no whitespace anywhere.
func ValidatePassword(field, password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return &ValidationError{Field: field, Message: "Password must be at least 6 characters long and cannot contain spaces"}
	}
	if strings.IndexFunc(password, unicode.IsSpace) >= 0 {
		return &ValidationError{Field: field, Message: "Password must be at least 6 characters long and cannot contain spaces"}
	}
	return nil
}

// NormalizeUsername converts username to lowercase for storage
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail trims and lowercases an address so uniqueness is case-blind.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
