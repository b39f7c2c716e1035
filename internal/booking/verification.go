package booking

import (
	"github.com/tripnest/booking-service/pkg/validator"
)

// VerificationStatus is the state of the guest phone verification gate
type VerificationStatus string

const (
	VerificationIdle     VerificationStatus = "idle"
	VerificationOTPSent  VerificationStatus = "otp_sent"
	VerificationVerified VerificationStatus = "otp_verified"
)

var phoneValidator = validator.NewPhoneValidator()

// Verification is the guest OTP gate. Members hold a permanently verified
// value with Member set.
type Verification struct {
	Status           VerificationStatus `json:"status"`
	Member           bool               `json:"member"`
	Phone            string             `json:"-"`
	RequestID        int64              `json:"otp_request_id,omitempty"`
	RemainingSeconds int                `json:"remaining_seconds"`
	CanResend        bool               `json:"can_resend"`
	LastError        string             `json:"last_error,omitempty"`
}

// GuestVerification returns the initial guest gate
func GuestVerification() Verification {
	return Verification{Status: VerificationIdle}
}

// MemberVerification returns the pre-verified gate of a signed-in member.
// A non-empty profile phone is locked for the life of the draft.
func MemberVerification(phone string) Verification {
	return Verification{Status: VerificationVerified, Member: true, Phone: phone}
}

// PhoneLocked reports whether the contact phone may not be edited
func (v Verification) PhoneLocked() bool {
	return v.Member && v.Phone != ""
}

// IsVerified reports whether submission may pass the gate
func (v Verification) IsVerified() bool {
	return v.Status == VerificationVerified
}

// CountdownActive reports whether the resend countdown should be ticking
func (v Verification) CountdownActive() bool {
	return v.Status == VerificationOTPSent && v.RemainingSeconds > 0
}

// RequestAllowed checks that an OTP may be requested for phone and returns
// the sanitized number to send. Resending while otp_sent is allowed.
func (v Verification) RequestAllowed(phone string) (string, error) {
	if v.Member {
		return "", ErrMemberPreVerified
	}
	if v.Status == VerificationVerified {
		return "", ErrAlreadyVerified
	}

	sanitized, err := phoneValidator.Validate(phone)
	if err != nil {
		return "", newValidationError("contact.phone", CodeInvalidPhone, "%s", err.Error())
	}
	return sanitized, nil
}

// OTPSent enters otp_sent with a fresh request id and countdown
func (v Verification) OTPSent(phone string, requestID int64, expiresIn int) Verification {
	return Verification{
		Status:           VerificationOTPSent,
		Phone:            phone,
		RequestID:        requestID,
		RemainingSeconds: max(expiresIn, 0),
		CanResend:        expiresIn <= 0,
	}
}

// OTPRequestFailed keeps the current state and records the server message
func (v Verification) OTPRequestFailed(message string) Verification {
	v.LastError = message
	return v
}

// VerifyAllowed checks the code and that a request id is outstanding.
// Verification stays possible after the countdown reaches zero.
func (v Verification) VerifyAllowed(code string) (string, error) {
	if v.Member {
		return "", ErrMemberPreVerified
	}
	if v.Status == VerificationVerified {
		return "", ErrAlreadyVerified
	}
	if v.Status != VerificationOTPSent || v.RequestID == 0 {
		return "", ErrNoOTPRequest
	}

	cleaned, err := phoneValidator.ValidateOTPCode(code)
	if err != nil {
		return "", newValidationError("code", CodeInvalidCode, "%s", err.Error())
	}
	return cleaned, nil
}

// Verified moves otp_sent to otp_verified. The request id is kept for the
// booking request.
func (v Verification) Verified() Verification {
	if v.Status != VerificationOTPSent {
		return v
	}
	v.Status = VerificationVerified
	v.RemainingSeconds = 0
	v.CanResend = false
	v.LastError = ""
	return v
}

// VerifyFailed stays in otp_sent and records the server message
func (v Verification) VerifyFailed(message string) Verification {
	v.LastError = message
	return v
}

// PhoneEdited invalidates any outstanding or completed guest verification
func (v Verification) PhoneEdited() Verification {
	if v.Member || v.Status == VerificationIdle {
		return v
	}
	return GuestVerification()
}

// Tick advances the countdown by one second
func (v Verification) Tick() Verification {
	if !v.CountdownActive() {
		return v
	}
	v.RemainingSeconds--
	if v.RemainingSeconds == 0 {
		v.CanResend = true
	}
	return v
}
