package delivery

import (
	"fmt"
	"math"

	"github.com/feastly/backend-feastly/internal/pricing"
)

// Policy holds the delivery fee tunables in force for one pricing session.
// Callers take a copy from a PolicySource and hold it for the whole quote so
// a concurrent refresh cannot change the math mid-computation.
type Policy struct {
	Enabled      bool
	BaseFee      pricing.Money
	BaseRadiusKm float64
	PerKmFee     pricing.Money
}

// QuoteFee prices a delivery of the given distance. The per-km extra charge
// rounds UP to whole rupees, so the fee is monotonically non-decreasing in
// distance and the rounding always favours the merchant.
func QuoteFee(distanceKm float64, p Policy) (pricing.Money, string) {
	if !p.Enabled {
		return 0, "Free delivery"
	}
	if distanceKm < 0 {
		distanceKm = 0
	}
	if distanceKm <= p.BaseRadiusKm {
		return p.BaseFee, fmt.Sprintf("%s base fee (within %.1f km base radius)",
			pricing.FormatMoney(p.BaseFee), p.BaseRadiusKm)
	}
	extraKm := distanceKm - p.BaseRadiusKm
	extra := ceilToRupees(extraKm * float64(p.PerKmFee))
	breakdown := fmt.Sprintf("%s base + %s for %.1f km beyond %.1f km at %s/km",
		pricing.FormatMoney(p.BaseFee), pricing.FormatMoney(extra),
		extraKm, p.BaseRadiusKm, pricing.FormatMoney(p.PerKmFee))
	return p.BaseFee + extra, breakdown
}

// ceilToRupees rounds a paise amount up to the next multiple of 100.
func ceilToRupees(paise float64) pricing.Money {
	if paise <= 0 {
		return 0
	}
	return pricing.Money(math.Ceil(paise/100)) * 100
}
