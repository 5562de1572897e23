package pricing

import "fmt"

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// FormatMoney renders minor units as a rupee amount for user-facing strings.
func FormatMoney(m Money) string {
	neg := ""
	if m < 0 {
		neg = "-"
		m = -m
	}
	return fmt.Sprintf("%s₹%d.%02d", neg, m/100, m%100)
}

// Line describes a cart line used for subtotal derivation.
type Line struct {
	Qty         int
	UnitPrice   Money
	DiscountBps int32
}

// Input carries the components combined into a final payable amount.
type Input struct {
	Subtotal          Money
	ItemDiscountTotal Money
	PromoDiscount     Money
	DeliveryFee       Money
	TaxBps            int32
}

// Summary aggregates the computed pricing components embedded on an order.
type Summary struct {
	Subtotal          Money `json:"subtotal"`
	ItemDiscountTotal Money `json:"itemDiscountTotal"`
	PromoDiscount     Money `json:"promoDiscount"`
	DeliveryFee       Money `json:"deliveryFee"`
	Tax               Money `json:"taxAmount"`
	Total             Money `json:"finalTotal"`
}

// EffectivePrice returns the unit price after the line-level discount.
// A discount of zero bps prices identically to no discount at all; only a
// strictly positive value changes the price.
func EffectivePrice(unitPrice Money, discountBps int32) Money {
	if discountBps <= 0 {
		return unitPrice
	}
	if discountBps > 10000 {
		discountBps = 10000
	}
	return ScaleBps(unitPrice, 10000-discountBps)
}

// ScaleBps multiplies a non-negative amount by bps/10000 rounding half-up.
func ScaleBps(amount Money, bps int32) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}

// SubtotalOf sums the effective price of each line times its quantity.
func SubtotalOf(lines []Line) Money {
	var subtotal Money
	for _, ln := range lines {
		if ln.Qty <= 0 {
			continue
		}
		subtotal += EffectivePrice(ln.UnitPrice, ln.DiscountBps) * Money(ln.Qty)
	}
	return subtotal
}

// ItemDiscountOf sums the per-line savings produced by line-level discounts.
func ItemDiscountOf(lines []Line) Money {
	var total Money
	for _, ln := range lines {
		if ln.Qty <= 0 || ln.DiscountBps <= 0 {
			continue
		}
		total += (ln.UnitPrice - EffectivePrice(ln.UnitPrice, ln.DiscountBps)) * Money(ln.Qty)
	}
	return total
}

// Compute derives the final payable amount. The order of operations is fixed:
// the taxable base is the subtotal net of the promo discount (item discounts
// are already inside the subtotal and are never subtracted twice), tax applies
// to that base, and the clamp to zero happens exactly once at the end.
func Compute(in Input) Summary {
	subtotal := in.Subtotal
	if subtotal < 0 {
		subtotal = 0
	}
	discount := in.PromoDiscount
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	fee := in.DeliveryFee
	if fee < 0 {
		fee = 0
	}

	taxable := subtotal - discount
	var tax Money
	if in.TaxBps > 0 {
		tax = ScaleBps(taxable, in.TaxBps)
	}

	total := subtotal - discount + fee + tax
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal:          subtotal,
		ItemDiscountTotal: in.ItemDiscountTotal,
		PromoDiscount:     discount,
		DeliveryFee:       fee,
		Tax:               tax,
		Total:             total,
	}
}
