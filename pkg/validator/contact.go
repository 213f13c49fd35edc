package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits and separators")

	// ErrInvalidLength indicates phone number is not 10 to 15 digits long
	ErrInvalidLength = errors.New("phone number must have 10 to 15 digits")

	// ErrEmptyEmail indicates email is empty
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidEmail indicates email is not of the form name@domain.tld
	ErrInvalidEmail = errors.New("email address is not valid")
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// emailRegex matches something@something.something without spaces
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ContactValidator validates customer contact details on booking and enquiry forms
type ContactValidator struct{}

// NewContactValidator creates a new contact validator instance
func NewContactValidator() *ContactValidator {
	return &ContactValidator{}
}

// ValidatePhone accepts international numbers such as +94 77 123 4567 or
// (077) 123-4567 and returns the digits only
func (v *ContactValidator) ValidatePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.SanitizePhone(phone)
	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) < minPhoneDigits || len(sanitized) > maxPhoneDigits {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// SanitizePhone removes the common separators from a phone number
func (v *ContactValidator) SanitizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")
	return replacer.Replace(phone)
}

// ValidateEmail returns the trimmed email or an error
func (v *ContactValidator) ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}
	if !emailRegex.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// IsValidPhone is a convenience method that returns true if phone is valid
func (v *ContactValidator) IsValidPhone(phone string) bool {
	_, err := v.ValidatePhone(phone)
	return err == nil
}

// IsValidEmail is a convenience method that returns true if email is valid
func (v *ContactValidator) IsValidEmail(email string) bool {
	_, err := v.ValidateEmail(email)
	return err == nil
}

// MalformedFields lists which of the non-empty email and phone values are
// malformed. Empty values are reported by required-field checks instead.
func (v *ContactValidator) MalformedFields(email, phone string) []string {
	var fields []string
	if strings.TrimSpace(email) != "" && !v.IsValidEmail(email) {
		fields = append(fields, "email")
	}
	if strings.TrimSpace(phone) != "" && !v.IsValidPhone(phone) {
		fields = append(fields, "phone")
	}
	return fields
}
