package tourapi

// SaleStatus is the sale state of a travel period
type SaleStatus string

const (
	SaleStatusOpen    SaleStatus = "open"
	SaleStatusClosed  SaleStatus = "closed"
	SaleStatusSoldOut SaleStatus = "sold_out"
)

// Offer holds the confirmed price terms of a period. Amounts are whole
// currency units; a zero price means the category has no confirmed price.
type Offer struct {
	NetPriceAdult           int64 `json:"net_price_adult"`
	NetPriceSingle          int64 `json:"net_price_single,omitempty"`
	PriceChildWithBed       int64 `json:"price_child_with_bed"`
	PriceChildWithoutBed    int64 `json:"price_child_without_bed"`
	PriceInfant             int64 `json:"price_infant"`
	DiscountChildWithBed    int64 `json:"discount_child_with_bed"`
	DiscountChildWithoutBed int64 `json:"discount_child_without_bed"`
	DiscountInfant          int64 `json:"discount_infant"`
}

// TravelPeriod is a bookable date range of a tour
type TravelPeriod struct {
	ID         int64      `json:"id"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Capacity   int        `json:"capacity"`
	Booked     int        `json:"booked"`
	SaleStatus SaleStatus `json:"sale_status"`
	Offer      *Offer     `json:"offer,omitempty"`
}

// Available returns capacity minus booked seats, never negative
func (p TravelPeriod) Available() int {
	return max(p.Capacity-p.Booked, 0)
}

// IsBookable reports whether the period is open and has seats left
func (p TravelPeriod) IsBookable() bool {
	return p.SaleStatus == SaleStatusOpen && p.Available() > 0
}

// Description renders the period the way the confirmation shows it
func (p TravelPeriod) Description() string {
	if p.EndDate == "" || p.EndDate == p.StartDate {
		return p.StartDate
	}
	return p.StartDate + " - " + p.EndDate
}

// FlashSaleItem is a discounted departure sold at a single flat price
type FlashSaleItem struct {
	ID         int64      `json:"id"`
	TourTitle  string     `json:"tour_title"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Price      int64      `json:"price"`
	Capacity   int        `json:"capacity"`
	Booked     int        `json:"booked"`
	SaleStatus SaleStatus `json:"sale_status"`
}

// Available returns capacity minus booked seats, never negative
func (f FlashSaleItem) Available() int {
	return max(f.Capacity-f.Booked, 0)
}

// IsBookable reports whether the flash sale is open and has seats left
func (f FlashSaleItem) IsBookable() bool {
	return f.SaleStatus == SaleStatusOpen && f.Available() > 0
}

// PassengerQuantities holds traveller counts. AdultSingle is the number of
// adults (a subset of Adult) asking for a single room.
type PassengerQuantities struct {
	Adult           int `json:"adult"`
	AdultSingle     int `json:"adult_single"`
	ChildWithBed    int `json:"child_with_bed"`
	ChildWithoutBed int `json:"child_without_bed"`
	Infant          int `json:"infant"`
}

// RoomQuantities holds room counts per room type
type RoomQuantities struct {
	Triple int `json:"triple"`
	Twin   int `json:"twin"`
	Double int `json:"double"`
	Single int `json:"single"`
}

// Total returns the number of rooms across all types
func (r RoomQuantities) Total() int {
	return r.Triple + r.Twin + r.Double + r.Single
}

// Contact is the contact block of a booking request
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// CreateBookingRequest is the body of POST /bookings
type CreateBookingRequest struct {
	PeriodID       int64               `json:"period_id"`
	Contact        Contact             `json:"contact"`
	Passengers     PassengerQuantities `json:"passengers"`
	Rooms          RoomQuantities      `json:"rooms"`
	SalesCode      *string             `json:"sales_code,omitempty"`
	SpecialRequest *string             `json:"special_request,omitempty"`
	ConsentTerms   bool                `json:"consent_terms"`
	OTPRequestID   *int64              `json:"otp_request_id,omitempty"`
	OTPVerified    *bool               `json:"otp_verified,omitempty"`
}

// CreateFlashSaleBookingRequest is the body of POST /flash-sale-bookings
type CreateFlashSaleBookingRequest struct {
	FlashSaleItemID int64               `json:"flash_sale_item_id"`
	Contact         Contact             `json:"contact"`
	Passengers      PassengerQuantities `json:"passengers"`
	Rooms           RoomQuantities      `json:"rooms"`
	SalesCode       *string             `json:"sales_code,omitempty"`
	SpecialRequest  *string             `json:"special_request,omitempty"`
	ConsentTerms    bool                `json:"consent_terms"`
	OTPRequestID    *int64              `json:"otp_request_id,omitempty"`
	OTPVerified     *bool               `json:"otp_verified,omitempty"`
}

// BookingResult is the server confirmation of a created booking
type BookingResult struct {
	BookingCode       string `json:"booking_code"`
	StatusLabel       string `json:"status_label"`
	TotalAmount       int64  `json:"total_amount"`
	TourTitle         string `json:"tour_title"`
	PeriodDescription string `json:"period_description"`
}

// BookingResponse is the envelope returned by both booking endpoints
type BookingResponse struct {
	Success bool           `json:"success"`
	Booking *BookingResult `json:"booking,omitempty"`
	Message string         `json:"message,omitempty"`
}

// OTPRequest is the body of POST /otp/request
type OTPRequest struct {
	Phone string `json:"phone"`
}

// OTPRequestResponse is returned by POST /otp/request
type OTPRequestResponse struct {
	Success          bool   `json:"success"`
	OTPRequestID     int64  `json:"otp_request_id"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	Message          string `json:"message,omitempty"`
	DebugCode        string `json:"debug_code,omitempty"`
}

// OTPVerifyRequest is the body of POST /otp/verify
type OTPVerifyRequest struct {
	OTPRequestID int64  `json:"otp_request_id"`
	Code         string `json:"code"`
}

// OTPVerifyResponse is returned by POST /otp/verify
type OTPVerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SalesAgent is an entry of the optional sales referral list
type SalesAgent struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type periodsResponse struct {
	Periods []TravelPeriod `json:"periods"`
}

type flashSaleItemResponse struct {
	Item *FlashSaleItem `json:"item"`
}

type salesAgentsResponse struct {
	Agents []SalesAgent `json:"agents"`
}
