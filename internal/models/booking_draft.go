package models

import (
	"github.com/tripnest/booking-service/internal/booking"
	"github.com/tripnest/booking-service/pkg/tourapi"
)

// ============================================================================
// REQUESTS
// ============================================================================

// OpenDraftRequest opens a draft for a tour or for a flash sale item.
// Exactly one of the two must be set.
type OpenDraftRequest struct {
	TourID          string `json:"tour_id"`
	FlashSaleItemID int64  `json:"flash_sale_item_id"`
}

// SelectPeriodRequest selects a travel period
type SelectPeriodRequest struct {
	PeriodID int64 `json:"period_id" binding:"required"`
}

// PassengersRequest sets the traveller counts
type PassengersRequest struct {
	Adult           int `json:"adult"`
	AdultSingle     int `json:"adult_single"`
	ChildWithBed    int `json:"child_with_bed"`
	ChildWithoutBed int `json:"child_without_bed"`
	Infant          int `json:"infant"`
}

// Quantities converts the request to the API quantities
func (r PassengersRequest) Quantities() tourapi.PassengerQuantities {
	return tourapi.PassengerQuantities(r)
}

// RoomsRequest sets the room counts
type RoomsRequest struct {
	Triple int `json:"triple"`
	Twin   int `json:"twin"`
	Double int `json:"double"`
	Single int `json:"single"`
}

// Quantities converts the request to the API quantities
func (r RoomsRequest) Quantities() tourapi.RoomQuantities {
	return tourapi.RoomQuantities(r)
}

// ContactRequest replaces the contact fields. Fields may be partially
// filled while the customer types; required fields are checked at submit.
type ContactRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	SalesCode      string `json:"sales_code"`
	SpecialRequest string `json:"special_request"`
}

// Contact converts the request to the draft contact
func (r ContactRequest) Contact() booking.Contact {
	return booking.Contact(r)
}

// ConsentRequest sets the terms consent flag
type ConsentRequest struct {
	Consent *bool `json:"consent" binding:"required"`
}

// VerifyOTPRequest carries the code the guest received
type VerifyOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// ============================================================================
// RESPONSES
// ============================================================================

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// PeriodView is a travel period as the period picker shows it
type PeriodView struct {
	ID          int64              `json:"id"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Description string             `json:"description"`
	Available   int                `json:"available"`
	SaleStatus  tourapi.SaleStatus `json:"sale_status"`
	Bookable    bool               `json:"bookable"`
	Priced      bool               `json:"priced"`
	AdultPrice  int64              `json:"adult_price,omitempty"`
}

// NewPeriodView builds the picker entry of a period
func NewPeriodView(p tourapi.TravelPeriod) PeriodView {
	view := PeriodView{
		ID:          p.ID,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Description: p.Description(),
		Available:   p.Available(),
		SaleStatus:  p.SaleStatus,
		Bookable:    p.IsBookable(),
	}
	if p.Offer != nil {
		view.Priced = true
		view.AdultPrice = p.Offer.NetPriceAdult
	}
	return view
}

// NewPeriodViews builds the picker entries of all periods
func NewPeriodViews(periods []tourapi.TravelPeriod) []PeriodView {
	views := make([]PeriodView, 0, len(periods))
	for _, p := range periods {
		views = append(views, NewPeriodView(p))
	}
	return views
}

// PeriodsResponse lists the periods of a tour
type PeriodsResponse struct {
	TourID  string       `json:"tour_id"`
	Periods []PeriodView `json:"periods"`
}

// SalesAgentsResponse lists the sales referral agents
type SalesAgentsResponse struct {
	Agents []tourapi.SalesAgent `json:"agents"`
}

// PricingView is the price summary panel
type PricingView struct {
	// Available is false when no offer applies and the customer must
	// contact sales
	Available  bool                `json:"available"`
	Lines      []booking.PriceLine `json:"lines"`
	GrandTotal int64               `json:"grand_total"`
}

// CapacityView is the room capacity check
type CapacityView struct {
	TotalRooms      int    `json:"total_rooms"`
	TotalPassengers int    `json:"total_passengers"`
	IsOverCapacity  bool   `json:"is_over_capacity"`
	Overage         int    `json:"overage"`
	Warning         string `json:"warning,omitempty"`
}

// DraftView is a booking draft as the booking modal renders it
type DraftView struct {
	ID               string                      `json:"id"`
	Kind             booking.Kind                `json:"kind"`
	Phase            booking.Phase               `json:"phase"`
	TourID           string                      `json:"tour_id,omitempty"`
	FlashSale        *tourapi.FlashSaleItem      `json:"flash_sale,omitempty"`
	Periods          []PeriodView                `json:"periods,omitempty"`
	SelectedPeriodID int64                       `json:"selected_period_id,omitempty"`
	Passengers       tourapi.PassengerQuantities `json:"passengers"`
	Rooms            tourapi.RoomQuantities      `json:"rooms"`
	Contact          booking.Contact             `json:"contact"`
	Consent          bool                        `json:"consent"`
	Member           bool                        `json:"member"`
	Verification     booking.Verification        `json:"verification"`
	Pricing          PricingView                 `json:"pricing"`
	Capacity         CapacityView                `json:"capacity"`
	LastError        string                      `json:"last_error,omitempty"`
	Result           *tourapi.BookingResult      `json:"result,omitempty"`
	DebugCode        string                      `json:"debug_code,omitempty"`
}

// NewDraftView renders a draft. A booked draft only carries its result.
func NewDraftView(id string, d booking.Draft, debugCode string) DraftView {
	view := DraftView{
		ID:           id,
		Kind:         d.Kind,
		Phase:        d.Phase,
		TourID:       d.TourID,
		FlashSale:    d.FlashSale,
		Member:       d.IsMember(),
		Verification: d.Verification,
		LastError:    d.LastError,
		Result:       d.Result,
		DebugCode:    debugCode,
	}
	if d.Phase == booking.PhaseSuccess {
		return view
	}

	pricing := d.Pricing()
	capacity := d.Capacity()

	view.Periods = NewPeriodViews(d.Periods)
	view.SelectedPeriodID = d.SelectedPeriodID
	view.Passengers = d.Passengers
	view.Rooms = d.Rooms
	view.Contact = d.Contact
	view.Consent = d.Consent
	view.Pricing = PricingView{
		Available:  d.Offer() != nil,
		Lines:      pricing.Lines(),
		GrandTotal: pricing.GrandTotal,
	}
	view.Capacity = CapacityView{
		TotalRooms:      capacity.TotalRooms,
		TotalPassengers: capacity.TotalPassengers,
		IsOverCapacity:  capacity.IsOverCapacity,
		Overage:         capacity.Overage,
		Warning:         capacity.Warning(),
	}
	return view
}
