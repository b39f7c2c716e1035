package booking

import (
	"fmt"
	"strings"

	"github.com/tripnest/booking-service/pkg/tourapi"
)

// Kind distinguishes standard tour drafts from flash sale drafts
type Kind string

const (
	KindTour      Kind = "tour"
	KindFlashSale Kind = "flash_sale"
)

// Member is the signed-in customer a draft is opened for
type Member struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Contact holds the contact fields of the form as typed
type Contact struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	SalesCode      string `json:"sales_code,omitempty"`
	SpecialRequest string `json:"special_request,omitempty"`
}

// Draft is the in-memory aggregate of one booking form. Every transition is
// a method returning a new Draft, the receiver is never modified.
type Draft struct {
	Kind             Kind
	TourID           string
	Periods          []tourapi.TravelPeriod
	SelectedPeriodID int64
	FlashSale        *tourapi.FlashSaleItem
	Passengers       tourapi.PassengerQuantities
	Rooms            tourapi.RoomQuantities
	Contact          Contact
	Consent          bool
	Verification     Verification
	MemberID         string
	Policy           PricingPolicy
	Phase            Phase
	LastError        string
	Result           *tourapi.BookingResult
}

// NewTourDraft opens a draft for a tour with its periods. No period is
// selected; quantities start at one adult.
func NewTourDraft(tourID string, periods []tourapi.TravelPeriod, member *Member, policy PricingPolicy) Draft {
	d := Draft{
		Kind:    KindTour,
		TourID:  tourID,
		Periods: append([]tourapi.TravelPeriod(nil), periods...),
		Policy:  policy,
	}
	return d.opened(member)
}

// NewFlashSaleDraft opens a draft for a flash sale item
func NewFlashSaleDraft(item tourapi.FlashSaleItem, member *Member, policy PricingPolicy) Draft {
	d := Draft{
		Kind:      KindFlashSale,
		FlashSale: &item,
		Policy:    policy,
	}
	return d.opened(member)
}

func (d Draft) opened(member *Member) Draft {
	d.Phase = PhaseEditing
	d.Passengers = tourapi.PassengerQuantities{Adult: 1}
	d.Verification = GuestVerification()
	if member != nil {
		d.MemberID = member.ID
		d.Verification = MemberVerification(member.Phone)
		d.Contact = Contact{
			FirstName: member.FirstName,
			LastName:  member.LastName,
			Email:     member.Email,
			Phone:     member.Phone,
		}
	}
	return d
}

// IsMember reports whether the draft belongs to a signed-in member
func (d Draft) IsMember() bool {
	return d.MemberID != ""
}

// Offer returns the active offer, nil when pricing is unavailable
func (d Draft) Offer() *tourapi.Offer {
	switch d.Kind {
	case KindFlashSale:
		if d.FlashSale == nil {
			return nil
		}
		return FlashSaleOffer(d.FlashSale.Price)
	default:
		return ResolveOffer(d.Periods, d.SelectedPeriodID)
	}
}

// SelectedPeriod returns the selected period, nil if none
func (d Draft) SelectedPeriod() *tourapi.TravelPeriod {
	if d.SelectedPeriodID == 0 {
		return nil
	}
	return FindPeriod(d.Periods, d.SelectedPeriodID)
}

// Pricing computes the current breakdown
func (d Draft) Pricing() PricingBreakdown {
	return ComputeTotals(d.Offer(), d.Passengers, d.Rooms, d.Policy)
}

// Capacity computes the current room check
func (d Draft) Capacity() CapacityCheck {
	return ValidateRooms(d.Passengers, d.Rooms)
}

// SelectPeriod selects a travel period. Quantities of categories the new
// offer cannot price are reset to zero.
func (d Draft) SelectPeriod(periodID int64) (Draft, error) {
	if err := d.editable(); err != nil {
		return d, err
	}
	if d.Kind != KindTour {
		return d, ErrNotTourDraft
	}

	period := FindPeriod(d.Periods, periodID)
	if period == nil {
		return d, newValidationError("period_id", CodePeriodNotFound, "travel period %d does not exist", periodID)
	}
	if !period.IsBookable() {
		return d, newValidationError("period_id", CodePeriodUnavailable, "travel period %s is not open for booking", period.Description())
	}

	d.SelectedPeriodID = periodID
	pricing := d.Pricing()
	if !pricing.ChildWithBed.HasPrice {
		d.Passengers.ChildWithBed = 0
	}
	if !pricing.ChildWithoutBed.HasPrice {
		d.Passengers.ChildWithoutBed = 0
	}
	if !pricing.Infant.HasPrice {
		d.Passengers.Infant = 0
	}
	if !pricing.Single.HasPrice {
		d.Passengers.AdultSingle = 0
		d.Rooms.Single = 0
	}
	if !pricing.Triple.HasPrice {
		d.Rooms.Triple, d.Rooms.Twin, d.Rooms.Double = 0, 0, 0
	}
	return d, nil
}

// SetPassengers replaces the passenger quantities
func (d Draft) SetPassengers(q tourapi.PassengerQuantities) (Draft, error) {
	if err := d.editable(); err != nil {
		return d, err
	}

	counts := []struct {
		field string
		value int
	}{
		{"passengers.adult", q.Adult},
		{"passengers.adult_single", q.AdultSingle},
		{"passengers.child_with_bed", q.ChildWithBed},
		{"passengers.child_without_bed", q.ChildWithoutBed},
		{"passengers.infant", q.Infant},
	}
	for _, c := range counts {
		if c.value < 0 {
			return d, newValidationError(c.field, CodeInvalidQuantity, "quantity cannot be negative")
		}
	}
	if q.Adult < 1 {
		return d, newValidationError("passengers.adult", CodeMinAdult, "at least one adult is required")
	}
	if q.AdultSingle > q.Adult {
		return d, newValidationError("passengers.adult_single", CodeInvalidQuantity,
			"single room adults (%d) cannot exceed adults (%d)", q.AdultSingle, q.Adult)
	}

	pricing := ComputeTotals(d.Offer(), q, d.Rooms, d.Policy)
	gated := []struct {
		field string
		qty   int
		line  PriceLine
	}{
		{"passengers.child_with_bed", q.ChildWithBed, pricing.ChildWithBed},
		{"passengers.child_without_bed", q.ChildWithoutBed, pricing.ChildWithoutBed},
		{"passengers.infant", q.Infant, pricing.Infant},
		{"passengers.adult_single", q.AdultSingle, pricing.Single},
	}
	for _, g := range gated {
		if g.qty > 0 && !g.line.HasPrice {
			return d, categoryUnavailable(g.field)
		}
	}

	d.Passengers = q
	return d, nil
}

// SetRooms replaces the room quantities. Over capacity is allowed while
// editing and only blocks submission.
func (d Draft) SetRooms(r tourapi.RoomQuantities) (Draft, error) {
	if err := d.editable(); err != nil {
		return d, err
	}

	pricing := ComputeTotals(d.Offer(), d.Passengers, r, d.Policy)
	rows := []struct {
		field string
		qty   int
		line  PriceLine
	}{
		{"rooms.triple", r.Triple, pricing.Triple},
		{"rooms.twin", r.Twin, pricing.Twin},
		{"rooms.double", r.Double, pricing.Double},
		{"rooms.single", r.Single, pricing.Single},
	}
	for _, row := range rows {
		if row.qty < 0 {
			return d, newValidationError(row.field, CodeInvalidQuantity, "quantity cannot be negative")
		}
		if row.qty > 0 && !row.line.HasPrice {
			return d, categoryUnavailable(row.field)
		}
	}

	d.Rooms = r
	return d, nil
}

// SetContact replaces the contact fields. A guest phone change resets the
// verification gate; a member phone is locked.
func (d Draft) SetContact(c Contact) (Draft, error) {
	if err := d.editable(); err != nil {
		return d, err
	}

	phoneChanged := !phoneValidator.SameNumber(c.Phone, d.Contact.Phone)
	if phoneChanged && d.Verification.PhoneLocked() {
		return d, ErrPhoneLocked
	}

	d.Contact = c
	if phoneChanged {
		d.Verification = d.Verification.PhoneEdited()
	}
	return d, nil
}

// SetConsent sets the terms consent flag
func (d Draft) SetConsent(consent bool) (Draft, error) {
	if err := d.editable(); err != nil {
		return d, err
	}
	d.Consent = consent
	return d, nil
}

// OTPRequestAllowed returns the sanitized contact phone to send a code to
func (d Draft) OTPRequestAllowed() (string, error) {
	if err := d.editable(); err != nil {
		return "", err
	}
	return d.Verification.RequestAllowed(d.Contact.Phone)
}

// OTPSent records a successful OTP request
func (d Draft) OTPSent(phone string, requestID int64, expiresIn int) Draft {
	d.Verification = d.Verification.OTPSent(phone, requestID, expiresIn)
	return d
}

// OTPRequestFailed records a rejected OTP request
func (d Draft) OTPRequestFailed(message string) Draft {
	d.Verification = d.Verification.OTPRequestFailed(message)
	return d
}

// VerifyAllowed returns the cleaned code to verify
func (d Draft) VerifyAllowed(code string) (string, error) {
	if err := d.editable(); err != nil {
		return "", err
	}
	return d.Verification.VerifyAllowed(code)
}

// Verified records a successful verification
func (d Draft) Verified() Draft {
	d.Verification = d.Verification.Verified()
	return d
}

// VerifyFailed records a rejected code
func (d Draft) VerifyFailed(message string) Draft {
	d.Verification = d.Verification.VerifyFailed(message)
	return d
}

// Tick advances the OTP countdown by one second
func (d Draft) Tick() Draft {
	d.Verification = d.Verification.Tick()
	return d
}

func (d Draft) editable() error {
	switch d.Phase {
	case PhaseSuccess:
		return ErrDraftFinalized
	case PhaseSubmitting:
		return ErrSubmitInProgress
	}
	return nil
}

func categoryUnavailable(field string) *ValidationError {
	name := field[strings.Index(field, ".")+1:]
	return newValidationError(field, CodeCategoryUnavailable,
		"%s is not priced for this departure, please contact sales", strings.ReplaceAll(name, "_", " "))
}

// Title is the product the draft books, for logs and audit
func (d Draft) Title() string {
	if d.Kind == KindFlashSale && d.FlashSale != nil {
		return fmt.Sprintf("flash sale %d", d.FlashSale.ID)
	}
	return "tour " + d.TourID
}
