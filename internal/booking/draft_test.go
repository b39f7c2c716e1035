package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/booking-service/pkg/tourapi"
)

const (
	periodPriced     int64 = 10
	periodNoOffer    int64 = 11
	periodSoldOut    int64 = 12
	periodAdultsOnly int64 = 13
)

func testPeriods() []tourapi.TravelPeriod {
	return []tourapi.TravelPeriod{
		{
			ID: periodPriced, StartDate: "2026-03-01", EndDate: "2026-03-05",
			Capacity: 30, Booked: 10, SaleStatus: tourapi.SaleStatusOpen,
			Offer: &tourapi.Offer{NetPriceAdult: 20000, NetPriceSingle: 5000, PriceChildWithBed: 15000, PriceChildWithoutBed: 12000, PriceInfant: 2000},
		},
		{
			ID: periodNoOffer, StartDate: "2026-04-01", EndDate: "2026-04-05",
			Capacity: 30, SaleStatus: tourapi.SaleStatusOpen,
		},
		{
			ID: periodSoldOut, StartDate: "2026-05-01", EndDate: "2026-05-05",
			Capacity: 30, Booked: 30, SaleStatus: tourapi.SaleStatusSoldOut,
			Offer: &tourapi.Offer{NetPriceAdult: 20000},
		},
		{
			ID: periodAdultsOnly, StartDate: "2026-06-01", EndDate: "2026-06-05",
			Capacity: 30, SaleStatus: tourapi.SaleStatusOpen,
			Offer: &tourapi.Offer{NetPriceAdult: 18000},
		},
	}
}

func guestContact() Contact {
	return Contact{FirstName: "Ana", LastName: "Lim", Email: "ana@example.com", Phone: "0812345678"}
}

// readyGuestDraft returns a priced, verified, consented guest draft
func readyGuestDraft(t *testing.T) Draft {
	t.Helper()
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())

	d, err := d.SelectPeriod(periodPriced)
	require.NoError(t, err)
	d, err = d.SetPassengers(tourapi.PassengerQuantities{Adult: 2, ChildWithBed: 1})
	require.NoError(t, err)
	d, err = d.SetRooms(tourapi.RoomQuantities{Twin: 1, Triple: 1})
	require.NoError(t, err)
	d, err = d.SetContact(guestContact())
	require.NoError(t, err)

	phone, err := d.OTPRequestAllowed()
	require.NoError(t, err)
	d = d.OTPSent(phone, 501, 300)
	_, err = d.VerifyAllowed("123456")
	require.NoError(t, err)
	d = d.Verified()

	d, err = d.SetConsent(true)
	require.NoError(t, err)
	return d
}

func TestNewTourDraft(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())

	assert.Equal(t, KindTour, d.Kind)
	assert.Equal(t, PhaseEditing, d.Phase)
	assert.Equal(t, 1, d.Passengers.Adult)
	assert.Equal(t, VerificationIdle, d.Verification.Status)
	assert.Nil(t, d.Offer())
	assert.False(t, d.IsMember())
}

func TestNewTourDraft_Member(t *testing.T) {
	member := &Member{ID: "m-1", FirstName: "Ana", LastName: "Lim", Email: "ana@example.com", Phone: "0812345678"}
	d := NewTourDraft("T-1", testPeriods(), member, DefaultPricingPolicy())

	assert.True(t, d.IsMember())
	assert.True(t, d.Verification.IsVerified())
	assert.True(t, d.Verification.Member)
	assert.Equal(t, "Ana", d.Contact.FirstName)

	_, err := d.SetContact(Contact{FirstName: "Ana", LastName: "Lim", Email: "ana@example.com", Phone: "0899999999"})
	assert.ErrorIs(t, err, ErrPhoneLocked)

	_, err = d.SetContact(Contact{FirstName: "Anna", LastName: "Lim", Email: "ana@example.com", Phone: "081-234-5678"})
	assert.NoError(t, err, "reformatting the same number is not an edit")

	_, err = d.OTPRequestAllowed()
	assert.ErrorIs(t, err, ErrMemberPreVerified)
}

func TestNoOffer_BlocksSubmit(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())
	d, err := d.SetPassengers(tourapi.PassengerQuantities{Adult: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(0), d.Pricing().GrandTotal)
	_, err = d.BeginSubmit()
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodePeriodRequired, vErr.Code)

	d, err = d.SelectPeriod(periodNoOffer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.Pricing().GrandTotal)
	assert.False(t, d.Pricing().Adult.HasPrice)

	_, err = d.BeginSubmit()
	vErr, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodePricingUnavailable, vErr.Code)

	d, err = d.SelectPeriod(periodPriced)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), d.Pricing().GrandTotal)
}

func TestFamilyBooking_CapacityAndTotal(t *testing.T) {
	d := readyGuestDraft(t)

	capacity := d.Capacity()
	assert.Equal(t, 3, capacity.TotalPassengers)
	assert.Equal(t, 2, capacity.TotalRooms)
	assert.False(t, capacity.IsOverCapacity)
	assert.Equal(t, int64(55000), d.Pricing().GrandTotal)
}

func TestOverCapacity_BlocksSubmit(t *testing.T) {
	d := readyGuestDraft(t)
	d, err := d.SetPassengers(tourapi.PassengerQuantities{Adult: 1})
	require.NoError(t, err)
	d, err = d.SetRooms(tourapi.RoomQuantities{Single: 2})
	require.NoError(t, err, "over capacity is only advisory while editing")

	assert.True(t, d.Capacity().IsOverCapacity)

	_, err = d.BeginSubmit()
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "rooms exceed travelers by 1", vErr.Message)
}

func TestPhoneEdit_ResetsVerification(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())
	d, err := d.SetContact(guestContact())
	require.NoError(t, err)

	phone, err := d.OTPRequestAllowed()
	require.NoError(t, err)
	d = d.OTPSent(phone, 501, 300)
	require.Equal(t, int64(501), d.Verification.RequestID)

	c := guestContact()
	c.Phone = "0812345679"
	d, err = d.SetContact(c)
	require.NoError(t, err)

	assert.Equal(t, VerificationIdle, d.Verification.Status)
	assert.Zero(t, d.Verification.RequestID)
	assert.False(t, d.Verification.CountdownActive())
}

func TestNameEdit_KeepsVerification(t *testing.T) {
	d := readyGuestDraft(t)
	c := guestContact()
	c.FirstName = "Anya"
	c.Phone = "081 234 5678"

	d, err := d.SetContact(c)
	require.NoError(t, err)
	assert.True(t, d.Verification.IsVerified())
}

func TestSelectPeriod(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())

	_, err := d.SelectPeriod(999)
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodePeriodNotFound, vErr.Code)

	_, err = d.SelectPeriod(periodSoldOut)
	vErr, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodePeriodUnavailable, vErr.Code)

	flash := NewFlashSaleDraft(tourapi.FlashSaleItem{ID: 1, Price: 100}, nil, DefaultPricingPolicy())
	_, err = flash.SelectPeriod(periodPriced)
	assert.ErrorIs(t, err, ErrNotTourDraft)
}

func TestSelectPeriod_ResetsUnpricedCategories(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())
	d, err := d.SelectPeriod(periodPriced)
	require.NoError(t, err)
	d, err = d.SetPassengers(tourapi.PassengerQuantities{Adult: 2, AdultSingle: 1, ChildWithBed: 1, ChildWithoutBed: 1, Infant: 1})
	require.NoError(t, err)
	d, err = d.SetRooms(tourapi.RoomQuantities{Twin: 1, Single: 1})
	require.NoError(t, err)

	d, err = d.SelectPeriod(periodAdultsOnly)
	require.NoError(t, err)

	assert.Equal(t, tourapi.PassengerQuantities{Adult: 2}, d.Passengers)
	assert.Equal(t, tourapi.RoomQuantities{Twin: 1}, d.Rooms)
}

func TestSetPassengers_Validation(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())
	priced, err := d.SelectPeriod(periodPriced)
	require.NoError(t, err)
	adultsOnly, err := d.SelectPeriod(periodAdultsOnly)
	require.NoError(t, err)

	tests := []struct {
		name  string
		draft Draft
		q     tourapi.PassengerQuantities
		field string
		code  string
	}{
		{"no adult", priced, tourapi.PassengerQuantities{}, "passengers.adult", CodeMinAdult},
		{"negative child", priced, tourapi.PassengerQuantities{Adult: 1, ChildWithBed: -1}, "passengers.child_with_bed", CodeInvalidQuantity},
		{"single exceeds adults", priced, tourapi.PassengerQuantities{Adult: 1, AdultSingle: 2}, "passengers.adult_single", CodeInvalidQuantity},
		{"child unpriced", adultsOnly, tourapi.PassengerQuantities{Adult: 1, ChildWithBed: 1}, "passengers.child_with_bed", CodeCategoryUnavailable},
		{"infant unpriced", adultsOnly, tourapi.PassengerQuantities{Adult: 1, Infant: 1}, "passengers.infant", CodeCategoryUnavailable},
		{"single unpriced", adultsOnly, tourapi.PassengerQuantities{Adult: 1, AdultSingle: 1}, "passengers.adult_single", CodeCategoryUnavailable},
		{"no period gates children", d, tourapi.PassengerQuantities{Adult: 1, ChildWithoutBed: 1}, "passengers.child_without_bed", CodeCategoryUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.draft.SetPassengers(tt.q)
			vErr, ok := AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.code, vErr.Code)
			assert.Equal(t, tt.draft.Passengers, got.Passengers)
		})
	}
}

func TestSetPassengers_FreeInfantsAllowedWithoutPrice(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, PricingPolicy{Infant: InfantFree})
	d, err := d.SelectPeriod(periodAdultsOnly)
	require.NoError(t, err)

	d, err = d.SetPassengers(tourapi.PassengerQuantities{Adult: 1, Infant: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(18000), d.Pricing().GrandTotal)
}

func TestSetRooms_Validation(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())

	_, err := d.SetRooms(tourapi.RoomQuantities{Twin: 1})
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodeCategoryUnavailable, vErr.Code, "rooms need a priced period")

	d, err = d.SelectPeriod(periodAdultsOnly)
	require.NoError(t, err)

	_, err = d.SetRooms(tourapi.RoomQuantities{Double: -1})
	vErr, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidQuantity, vErr.Code)

	_, err = d.SetRooms(tourapi.RoomQuantities{Single: 1})
	vErr, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "rooms.single", vErr.Field)

	d, err = d.SetRooms(tourapi.RoomQuantities{Double: 1, Triple: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Rooms.Total())
}

func TestDraft_TransitionsDoNotMutateReceiver(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())
	next, err := d.SelectPeriod(periodPriced)
	require.NoError(t, err)

	assert.Zero(t, d.SelectedPeriodID)
	assert.Equal(t, periodPriced, next.SelectedPeriodID)
}

func TestDraft_Tick(t *testing.T) {
	d := NewTourDraft("T-1", testPeriods(), nil, DefaultPricingPolicy())
	d = d.OTPSent("0812345678", 1, 1).Tick()

	assert.Equal(t, 0, d.Verification.RemainingSeconds)
	assert.True(t, d.Verification.CanResend)
}

func TestFlashSaleDraft(t *testing.T) {
	item := tourapi.FlashSaleItem{ID: 42, Price: 15900, Capacity: 10, SaleStatus: tourapi.SaleStatusOpen}
	d := NewFlashSaleDraft(item, nil, DefaultPricingPolicy())

	d, err := d.SetPassengers(tourapi.PassengerQuantities{Adult: 2, ChildWithBed: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(47700), d.Pricing().GrandTotal)

	_, err = d.SetPassengers(tourapi.PassengerQuantities{Adult: 1, Infant: 1})
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, CodeCategoryUnavailable, vErr.Code)

	assert.Equal(t, "flash sale 42", d.Title())
}
