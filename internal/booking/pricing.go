package booking

import (
	"fmt"
	"strings"

	"github.com/tripnest/booking-service/pkg/tourapi"
)

// Category names one priced row of the booking form
type Category string

const (
	CategoryAdult           Category = "adult"
	CategoryChildWithBed    Category = "child_with_bed"
	CategoryChildWithoutBed Category = "child_without_bed"
	CategoryInfant          Category = "infant"
	CategoryTriple          Category = "triple"
	CategoryTwin            Category = "twin"
	CategoryDouble          Category = "double"
	CategorySingle          Category = "single"
)

// InfantPolicy decides how infants are charged
type InfantPolicy string

const (
	InfantBilled InfantPolicy = "billed" // price_infant - discount_infant per infant
	InfantFree   InfantPolicy = "free"   // always priced at zero
)

// ParseInfantPolicy parses a configured infant policy
func ParseInfantPolicy(s string) (InfantPolicy, error) {
	switch InfantPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case InfantBilled, "":
		return InfantBilled, nil
	case InfantFree:
		return InfantFree, nil
	default:
		return "", fmt.Errorf("unknown infant policy %q", s)
	}
}

// RoomRates is the declared per-room price table. Triple, twin and double
// default to zero, meaning bundled into the adult fare. A positive Single
// overrides the offer's single supplement.
type RoomRates struct {
	Triple int64
	Twin   int64
	Double int64
	Single int64
}

// PricingPolicy carries the business rules that are not part of an offer
type PricingPolicy struct {
	Infant    InfantPolicy
	RoomRates RoomRates
}

// DefaultPricingPolicy bills infants and bundles shared rooms
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{Infant: InfantBilled}
}

// PriceLine is one category row. HasPrice=false means "contact sales" and
// the category cannot take a quantity.
type PriceLine struct {
	Category  Category `json:"category"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unit_price"`
	Subtotal  int64    `json:"subtotal"`
	HasPrice  bool     `json:"has_price"`
}

// PricingBreakdown holds one line per category and the grand total
type PricingBreakdown struct {
	Adult           PriceLine `json:"adult"`
	ChildWithBed    PriceLine `json:"child_with_bed"`
	ChildWithoutBed PriceLine `json:"child_without_bed"`
	Infant          PriceLine `json:"infant"`
	Triple          PriceLine `json:"triple"`
	Twin            PriceLine `json:"twin"`
	Double          PriceLine `json:"double"`
	Single          PriceLine `json:"single"`
	GrandTotal      int64     `json:"grand_total"`
}

// Lines returns every line in display order
func (b PricingBreakdown) Lines() []PriceLine {
	return []PriceLine{
		b.Adult, b.ChildWithBed, b.ChildWithoutBed, b.Infant,
		b.Triple, b.Twin, b.Double, b.Single,
	}
}

// ComputeTotals prices the quantities against an offer. It never fails:
// missing prices are reported through PriceLine.HasPrice.
func ComputeTotals(offer *tourapi.Offer, passengers tourapi.PassengerQuantities, rooms tourapi.RoomQuantities, policy PricingPolicy) PricingBreakdown {
	b := PricingBreakdown{
		Adult:           PriceLine{Category: CategoryAdult, Quantity: passengers.Adult},
		ChildWithBed:    PriceLine{Category: CategoryChildWithBed, Quantity: passengers.ChildWithBed},
		ChildWithoutBed: PriceLine{Category: CategoryChildWithoutBed, Quantity: passengers.ChildWithoutBed},
		Infant:          PriceLine{Category: CategoryInfant, Quantity: passengers.Infant},
		Triple:          PriceLine{Category: CategoryTriple, Quantity: rooms.Triple},
		Twin:            PriceLine{Category: CategoryTwin, Quantity: rooms.Twin},
		Double:          PriceLine{Category: CategoryDouble, Quantity: rooms.Double},
		Single:          PriceLine{Category: CategorySingle, Quantity: rooms.Single},
	}
	if offer == nil {
		return b
	}

	b.Adult = pricedLine(b.Adult, offer.NetPriceAdult, 0)
	b.ChildWithBed = pricedLine(b.ChildWithBed, offer.PriceChildWithBed, offer.DiscountChildWithBed)
	b.ChildWithoutBed = pricedLine(b.ChildWithoutBed, offer.PriceChildWithoutBed, offer.DiscountChildWithoutBed)
	if policy.Infant == InfantFree {
		b.Infant = flatLine(b.Infant, 0)
	} else {
		b.Infant = pricedLine(b.Infant, offer.PriceInfant, offer.DiscountInfant)
	}

	b.Triple = flatLine(b.Triple, policy.RoomRates.Triple)
	b.Twin = flatLine(b.Twin, policy.RoomRates.Twin)
	b.Double = flatLine(b.Double, policy.RoomRates.Double)

	single := offer.NetPriceSingle
	if policy.RoomRates.Single > 0 {
		single = policy.RoomRates.Single
	}
	b.Single = pricedLine(b.Single, single, 0)

	for _, line := range b.Lines() {
		b.GrandTotal += line.Subtotal
	}
	return b
}

// pricedLine prices a category whose zero price means unavailable
func pricedLine(line PriceLine, price, discount int64) PriceLine {
	if price <= 0 {
		return line
	}
	return flatLine(line, max(price-discount, 0))
}

// flatLine prices a category that is always available at unit
func flatLine(line PriceLine, unit int64) PriceLine {
	line.HasPrice = true
	line.UnitPrice = max(unit, 0)
	line.Subtotal = int64(max(line.Quantity, 0)) * line.UnitPrice
	return line
}
