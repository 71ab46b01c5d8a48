package validator

import (
	"net/mail"
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	upperRegex = regexp.MustCompile(`[A-Z]`)
	lowerRegex = regexp.MustCompile(`[a-z]`)
	digitRegex = regexp.MustCompile(`[0-9]`)
)

func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}

	return emailRegex.MatchString(strings.ToLower(email))
}

// ValidatePassword requires at least 8 characters with upper case, lower
// case, and a digit.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	return upperRegex.MatchString(password) &&
		lowerRegex.MatchString(password) &&
		digitRegex.MatchString(password)
}

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}
