package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinPhoneDigits is the shortest number the OTP service accepts
	MinPhoneDigits = 10

	// MaxPhoneDigits is the E.164 upper bound
	MaxPhoneDigits = 15

	// OTPCodeLength is the number of digits in a verification code
	OTPCodeLength = 6
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrTooShort indicates phone number has fewer than MinPhoneDigits digits
	ErrTooShort = fmt.Errorf("phone number must have at least %d digits", MinPhoneDigits)

	// ErrTooLong indicates phone number has more than MaxPhoneDigits digits
	ErrTooLong = fmt.Errorf("phone number must have at most %d digits", MaxPhoneDigits)

	// ErrInvalidOTPCode indicates the verification code is not exactly six digits
	ErrInvalidOTPCode = fmt.Errorf("verification code must be exactly %d digits", OTPCodeLength)
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate checks a phone number typed into the booking form.
// Accepts 0812345678, 081 234 5678, 081-234-5678 or +66812345678.
// Returns the sanitized number (digits only) and an error if invalid.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) < MinPhoneDigits {
		return "", ErrTooShort
	}
	if len(sanitized) > MaxPhoneDigits {
		return "", ErrTooLong
	}

	return sanitized, nil
}

// Sanitize removes separators commonly typed into phone fields
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")
	phone = strings.ReplaceAll(phone, "+", "")
	phone = strings.ReplaceAll(phone, ".", "")
	return phone
}

// SameNumber reports whether two typed numbers sanitize to the same digits
func (v *PhoneValidator) SameNumber(a, b string) bool {
	return v.Sanitize(a) == v.Sanitize(b)
}

// ValidateOTPCode checks that a verification code is exactly six digits
func (v *PhoneValidator) ValidateOTPCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != OTPCodeLength || !phoneRegex.MatchString(code) {
		return "", ErrInvalidOTPCode
	}
	return code, nil
}
