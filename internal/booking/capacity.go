package booking

import "github.com/tripnest/booking-service/pkg/tourapi"

// CapacityCheck compares booked rooms with travellers who need a bed
type CapacityCheck struct {
	TotalRooms      int  `json:"total_rooms"`
	TotalPassengers int  `json:"total_passengers"`
	IsOverCapacity  bool `json:"is_over_capacity"`
	Overage         int  `json:"overage"`
}

// ValidateRooms checks that rooms never exceed travellers. Infants do not
// occupy a bed and are excluded.
func ValidateRooms(passengers tourapi.PassengerQuantities, rooms tourapi.RoomQuantities) CapacityCheck {
	check := CapacityCheck{
		TotalRooms:      rooms.Total(),
		TotalPassengers: passengers.Adult + passengers.ChildWithBed + passengers.ChildWithoutBed,
	}
	check.IsOverCapacity = check.TotalRooms > check.TotalPassengers
	if check.IsOverCapacity {
		check.Overage = check.TotalRooms - check.TotalPassengers
	}
	return check
}

// Err returns the blocking submit error, or nil when rooms fit
func (c CapacityCheck) Err() error {
	if !c.IsOverCapacity {
		return nil
	}
	return newValidationError("rooms", CodeOverCapacity, "rooms exceed travelers by %d", c.Overage)
}

// Warning returns the advisory message shown while editing
func (c CapacityCheck) Warning() string {
	if err := c.Err(); err != nil {
		return err.(*ValidationError).Message
	}
	return ""
}
