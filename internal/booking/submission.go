package booking

import (
	"strings"

	"github.com/tripnest/booking-service/pkg/tourapi"
)

// Phase is the submission state of a draft
type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting" // one booking call in flight
	PhaseSuccess    Phase = "success"    // terminal, only Result is kept
)

// Validate runs the pre-submit checks in order and returns the first failure
func (d Draft) Validate() error {
	if err := d.validateProduct(); err != nil {
		return err
	}

	required := []struct {
		field string
		value string
		label string
	}{
		{"contact.first_name", d.Contact.FirstName, "first name"},
		{"contact.last_name", d.Contact.LastName, "last name"},
		{"contact.email", d.Contact.Email, "email"},
		{"contact.phone", d.Contact.Phone, "phone"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return newValidationError(r.field, CodeRequired, "%s is required", r.label)
		}
	}

	if !d.Verification.IsVerified() {
		return newValidationError("verification", CodeNotVerified, "please verify your phone number before booking")
	}

	if !d.Consent {
		return newValidationError("consent", CodeConsentRequired, "please accept the terms and conditions")
	}

	return d.Capacity().Err()
}

func (d Draft) validateProduct() error {
	if d.Kind == KindFlashSale {
		if d.Offer() == nil {
			return newValidationError("flash_sale_item_id", CodePricingUnavailable, "pricing is not available for this sale, please contact sales")
		}
		return nil
	}

	if d.SelectedPeriod() == nil {
		return newValidationError("period_id", CodePeriodRequired, "please select a travel period")
	}
	if d.Offer() == nil {
		return newValidationError("period_id", CodePricingUnavailable, "pricing is not available for this period, please contact sales")
	}
	return nil
}

// BeginSubmit validates the draft and moves it to submitting
func (d Draft) BeginSubmit() (Draft, error) {
	if err := d.editable(); err != nil {
		return d, err
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	d.Phase = PhaseSubmitting
	d.LastError = ""
	return d, nil
}

// SubmitSucceeded discards the draft contents and keeps only the result
func (d Draft) SubmitSucceeded(result tourapi.BookingResult) Draft {
	return Draft{
		Kind:         d.Kind,
		TourID:       d.TourID,
		FlashSale:    d.FlashSale,
		MemberID:     d.MemberID,
		Policy:       d.Policy,
		Verification: Verification{Status: d.Verification.Status, Member: d.Verification.Member},
		Phase:        PhaseSuccess,
		Result:       &result,
	}
}

// SubmitFailed returns to editing with every field intact
func (d Draft) SubmitFailed(message string) Draft {
	d.Phase = PhaseEditing
	d.LastError = message
	return d
}

// TourBookingRequest builds the POST /bookings body
func (d Draft) TourBookingRequest() tourapi.CreateBookingRequest {
	req := tourapi.CreateBookingRequest{
		PeriodID:       d.SelectedPeriodID,
		Contact:        d.requestContact(),
		Passengers:     d.Passengers,
		Rooms:          d.Rooms,
		SalesCode:      optional(d.Contact.SalesCode),
		SpecialRequest: optional(d.Contact.SpecialRequest),
		ConsentTerms:   d.Consent,
	}
	req.OTPRequestID, req.OTPVerified = d.otpProof()
	return req
}

// FlashSaleBookingRequest builds the POST /flash-sale-bookings body
func (d Draft) FlashSaleBookingRequest() tourapi.CreateFlashSaleBookingRequest {
	req := tourapi.CreateFlashSaleBookingRequest{
		Contact:        d.requestContact(),
		Passengers:     d.Passengers,
		Rooms:          d.Rooms,
		SalesCode:      optional(d.Contact.SalesCode),
		SpecialRequest: optional(d.Contact.SpecialRequest),
		ConsentTerms:   d.Consent,
	}
	if d.FlashSale != nil {
		req.FlashSaleItemID = d.FlashSale.ID
	}
	req.OTPRequestID, req.OTPVerified = d.otpProof()
	return req
}

func (d Draft) requestContact() tourapi.Contact {
	return tourapi.Contact{
		FirstName: strings.TrimSpace(d.Contact.FirstName),
		LastName:  strings.TrimSpace(d.Contact.LastName),
		Email:     strings.TrimSpace(d.Contact.Email),
		Phone:     phoneValidator.Sanitize(d.Contact.Phone),
	}
}

// otpProof returns the guest OTP fields; members send neither
func (d Draft) otpProof() (*int64, *bool) {
	if d.Verification.Member || !d.Verification.IsVerified() {
		return nil, nil
	}
	id := d.Verification.RequestID
	verified := true
	return &id, &verified
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
