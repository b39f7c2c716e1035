package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmitInProgress is returned when the draft already has a booking call in flight
	ErrSubmitInProgress = errors.New("a booking submission is already in progress")

	// ErrDraftFinalized is returned for any change to a draft that was booked
	ErrDraftFinalized = errors.New("booking draft is already submitted")

	// ErrMemberPreVerified is returned when a member tries to use the OTP flow
	ErrMemberPreVerified = errors.New("members do not need phone verification")

	// ErrAlreadyVerified is returned when a verified guest requests or verifies again
	ErrAlreadyVerified = errors.New("phone number is already verified")

	// ErrNoOTPRequest is returned when a code is verified before one was sent
	ErrNoOTPRequest = errors.New("no verification code has been requested")

	// ErrPhoneLocked is returned when a member edits the phone from their profile
	ErrPhoneLocked = errors.New("phone number is locked to the member profile")

	// ErrNotTourDraft is returned when a period is selected on a flash sale draft
	ErrNotTourDraft = errors.New("flash sale drafts have a fixed departure")
)

// Validation error codes
const (
	CodeRequired            = "required"
	CodeInvalidPhone        = "invalid_phone"
	CodeInvalidCode         = "invalid_code"
	CodeInvalidQuantity     = "invalid_quantity"
	CodeMinAdult            = "min_adult"
	CodeCategoryUnavailable = "category_unavailable"
	CodePeriodRequired      = "period_required"
	CodePeriodNotFound      = "period_not_found"
	CodePeriodUnavailable   = "period_unavailable"
	CodePricingUnavailable  = "pricing_unavailable"
	CodeNotVerified         = "not_verified"
	CodeConsentRequired     = "consent_required"
	CodeOverCapacity        = "over_capacity"
)

// ValidationError is a local, synchronous rejection tied to one form field
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsValidationError unwraps err into a *ValidationError
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
