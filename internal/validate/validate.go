// Package validate holds input normalization and validation rules shared by
// the CRM endpoints and the public intake form.
package validate

import (
	"regexp"
	"strings"
)

// Validation limits.
const (
	// MinNameLength is the minimum length for a contact name.
	MinNameLength = 2
	// MinMessageLength is the minimum length for an intake message.
	MinMessageLength = 5
	// MaxPhoneLength is the maximum length for a phone number.
	MaxPhoneLength = 60
	// MaxCompanyLength is the maximum length for a company name.
	MaxCompanyLength = 200
)

// emailPattern is deliberately loose: something@something.tld, no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Text trims surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(s)
}

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsName reports whether a trimmed name is long enough.
func IsName(s string) bool {
	return len([]rune(s)) >= MinNameLength
}

// EmailDomain returns the lowercased part after the last '@'.
func EmailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
