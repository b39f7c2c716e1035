package booking

import "github.com/tripnest/booking-service/pkg/tourapi"

// FindPeriod returns the period with id, or nil
func FindPeriod(periods []tourapi.TravelPeriod, id int64) *tourapi.TravelPeriod {
	for i := range periods {
		if periods[i].ID == id {
			return &periods[i]
		}
	}
	return nil
}

// ResolveOffer returns a copy of the offer attached to the selected period.
// nil means pricing is unavailable and the customer must contact sales.
func ResolveOffer(periods []tourapi.TravelPeriod, selectedID int64) *tourapi.Offer {
	period := FindPeriod(periods, selectedID)
	if period == nil || period.Offer == nil {
		return nil
	}
	offer := *period.Offer
	return &offer
}

// FlashSaleOffer builds the offer of a flash sale item: one flat price for
// adults and both child categories, no discounts, no infant price and no
// single supplement. A non-positive price yields no offer.
func FlashSaleOffer(price int64) *tourapi.Offer {
	if price <= 0 {
		return nil
	}
	return &tourapi.Offer{
		NetPriceAdult:        price,
		PriceChildWithBed:    price,
		PriceChildWithoutBed: price,
	}
}

// FlashSaleAvailable rejects a flash sale item that is closed or sold out
func FlashSaleAvailable(item tourapi.FlashSaleItem) error {
	if !item.IsBookable() {
		return newValidationError("flash_sale_item_id", CodePeriodUnavailable, "this flash sale is no longer available")
	}
	return nil
}
