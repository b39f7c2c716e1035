package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/booking-service/pkg/tourapi"
)

func TestValidate_OrderAndEachCheckBlocks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d Draft) Draft
		field  string
		code   string
	}{
		{
			name:   "no period",
			mutate: func(d Draft) Draft { d.SelectedPeriodID = 0; return d },
			field:  "period_id",
			code:   CodePeriodRequired,
		},
		{
			name:   "blank first name",
			mutate: func(d Draft) Draft { d.Contact.FirstName = "  "; return d },
			field:  "contact.first_name",
			code:   CodeRequired,
		},
		{
			name:   "blank last name",
			mutate: func(d Draft) Draft { d.Contact.LastName = ""; return d },
			field:  "contact.last_name",
			code:   CodeRequired,
		},
		{
			name:   "blank email",
			mutate: func(d Draft) Draft { d.Contact.Email = "\t"; return d },
			field:  "contact.email",
			code:   CodeRequired,
		},
		{
			name:   "blank phone",
			mutate: func(d Draft) Draft { d.Contact.Phone = ""; return d },
			field:  "contact.phone",
			code:   CodeRequired,
		},
		{
			name:   "guest not verified",
			mutate: func(d Draft) Draft { d.Verification = d.Verification.PhoneEdited(); return d },
			field:  "verification",
			code:   CodeNotVerified,
		},
		{
			name:   "otp sent but not verified",
			mutate: func(d Draft) Draft { d.Verification = GuestVerification().OTPSent("0812345678", 1, 60); return d },
			field:  "verification",
			code:   CodeNotVerified,
		},
		{
			name:   "consent unchecked",
			mutate: func(d Draft) Draft { d.Consent = false; return d },
			field:  "consent",
			code:   CodeConsentRequired,
		},
		{
			name:   "over capacity",
			mutate: func(d Draft) Draft { d.Rooms.Single = 5; return d },
			field:  "rooms",
			code:   CodeOverCapacity,
		},
		{
			name: "first failure wins",
			mutate: func(d Draft) Draft {
				d.Contact.Email = ""
				d.Consent = false
				d.Rooms.Single = 5
				return d
			},
			field: "contact.email",
			code:  CodeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.mutate(readyGuestDraft(t))

			next, err := d.BeginSubmit()
			vErr, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.code, vErr.Code)
			assert.Equal(t, PhaseEditing, next.Phase)
		})
	}
}

func TestBeginSubmit(t *testing.T) {
	d := readyGuestDraft(t)
	d.LastError = "previous failure"

	submitting, err := d.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, submitting.Phase)
	assert.Empty(t, submitting.LastError)

	_, err = submitting.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	_, err = submitting.SetConsent(false)
	assert.ErrorIs(t, err, ErrSubmitInProgress)
}

func TestMemberSkipsVerification(t *testing.T) {
	member := &Member{ID: "m-1", FirstName: "Ana", LastName: "Lim", Email: "ana@example.com", Phone: "0812345678"}
	d := NewTourDraft("T-1", testPeriods(), member, DefaultPricingPolicy())
	d, err := d.SelectPeriod(periodPriced)
	require.NoError(t, err)
	d, err = d.SetConsent(true)
	require.NoError(t, err)

	d, err = d.BeginSubmit()
	require.NoError(t, err)

	req := d.TourBookingRequest()
	assert.Nil(t, req.OTPRequestID)
	assert.Nil(t, req.OTPVerified)
}

func TestTourBookingRequest(t *testing.T) {
	d := readyGuestDraft(t)
	d.Contact.FirstName = "  Ana "
	d.Contact.Phone = "081-234-5678"
	d.Contact.SalesCode = " S01 "
	d.Contact.SpecialRequest = "   "

	req := d.TourBookingRequest()

	assert.Equal(t, periodPriced, req.PeriodID)
	assert.Equal(t, "Ana", req.Contact.FirstName)
	assert.Equal(t, "0812345678", req.Contact.Phone)
	assert.Equal(t, tourapi.PassengerQuantities{Adult: 2, ChildWithBed: 1}, req.Passengers)
	assert.Equal(t, tourapi.RoomQuantities{Twin: 1, Triple: 1}, req.Rooms)
	require.NotNil(t, req.SalesCode)
	assert.Equal(t, "S01", *req.SalesCode)
	assert.Nil(t, req.SpecialRequest)
	assert.True(t, req.ConsentTerms)
	require.NotNil(t, req.OTPRequestID)
	assert.Equal(t, int64(501), *req.OTPRequestID)
	require.NotNil(t, req.OTPVerified)
	assert.True(t, *req.OTPVerified)
}

func TestFlashSaleBookingRequest(t *testing.T) {
	item := tourapi.FlashSaleItem{ID: 42, Price: 15900, Capacity: 10, SaleStatus: tourapi.SaleStatusOpen}
	d := NewFlashSaleDraft(item, nil, DefaultPricingPolicy())
	d, err := d.SetContact(guestContact())
	require.NoError(t, err)

	req := d.FlashSaleBookingRequest()
	assert.Equal(t, int64(42), req.FlashSaleItemID)
	assert.Nil(t, req.OTPRequestID, "unverified guest carries no proof")
}

func TestFlashSaleValidate_NoPrice(t *testing.T) {
	d := NewFlashSaleDraft(tourapi.FlashSaleItem{ID: 1}, nil, DefaultPricingPolicy())

	err := d.Validate()
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodePricingUnavailable, vErr.Code)
}

func TestSubmitFailed_KeepsFields(t *testing.T) {
	d := readyGuestDraft(t)
	submitting, err := d.BeginSubmit()
	require.NoError(t, err)

	failed := submitting.SubmitFailed("Period is full")

	assert.Equal(t, PhaseEditing, failed.Phase)
	assert.Equal(t, "Period is full", failed.LastError)
	assert.Equal(t, d.Contact, failed.Contact)
	assert.Equal(t, d.Passengers, failed.Passengers)
	assert.Equal(t, d.Rooms, failed.Rooms)
	assert.Equal(t, d.Verification, failed.Verification)
	assert.True(t, failed.Consent)

	_, err = failed.BeginSubmit()
	assert.NoError(t, err, "a failed submit can be retried")
}

func TestSubmitSucceeded_IsTerminal(t *testing.T) {
	d := readyGuestDraft(t)
	d, err := d.BeginSubmit()
	require.NoError(t, err)

	done := d.SubmitSucceeded(tourapi.BookingResult{BookingCode: "BK-1001", TotalAmount: 55000})

	assert.Equal(t, PhaseSuccess, done.Phase)
	require.NotNil(t, done.Result)
	assert.Equal(t, "BK-1001", done.Result.BookingCode)
	assert.Equal(t, int64(55000), done.Result.TotalAmount)
	assert.Empty(t, done.Contact.FirstName)
	assert.Zero(t, done.SelectedPeriodID)
	assert.Zero(t, done.Passengers.Adult)
	assert.Nil(t, done.Periods)

	_, err = done.BeginSubmit()
	assert.ErrorIs(t, err, ErrDraftFinalized)
	_, err = done.SetPassengers(tourapi.PassengerQuantities{Adult: 1})
	assert.ErrorIs(t, err, ErrDraftFinalized)

	fresh := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())
	assert.Equal(t, PhaseEditing, fresh.Phase)
	assert.Nil(t, fresh.Result)
	assert.Empty(t, fresh.Contact)
}
