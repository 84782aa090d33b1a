package orders

import (
	"strings"

	"github.com/dresperanto/studio-flora/pkg/models"
)

// Delivery fee tiers in dollars.
const (
	feeDowntown = 10
	feeStandard = 15
	feeSuburbs  = 20
)

// deliveryZones maps address substrings to fees, in priority order: an
// address matching both "downtown" and "suburbs" gets the downtown rate.
var deliveryZones = []struct {
	substrings []string
	fee        float64
}{
	{[]string{"downtown", "city center"}, feeDowntown},
	{[]string{"suburbs"}, feeSuburbs},
}

// DeliveryFee returns the fee for a delivery mode and recipient address.
// Pickup orders are always free; delivery orders get a zone rate from a
// case-insensitive substring match on the address, falling back to the
// standard fee.
func DeliveryFee(deliveryType, address string) float64 {
	if deliveryType == models.DeliveryTypePickup {
		return 0
	}

	if address == "" {
		return feeStandard
	}

	lower := strings.ToLower(address)
	for _, zone := range deliveryZones {
		for _, s := range zone.substrings {
			if strings.Contains(lower, s) {
				return zone.fee
			}
		}
	}
	return feeStandard
}
