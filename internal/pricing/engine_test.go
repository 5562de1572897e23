package pricing

import "testing"

func TestComputeNoPromoNoTax(t *testing.T) {
	// subtotal 500.00, fee 35.00
	sum := Compute(Input{Subtotal: 50_000, DeliveryFee: 3_500})
	if sum.Total != 53_500 {
		t.Fatalf("expected total 53500, got %d", sum.Total)
	}
	if sum.Tax != 0 {
		t.Fatalf("expected zero tax, got %d", sum.Tax)
	}
}

func TestComputeTaxAppliesAfterPromoDiscount(t *testing.T) {
	// 5% GST on (500 - 100) = 20.00
	sum := Compute(Input{Subtotal: 50_000, PromoDiscount: 10_000, DeliveryFee: 6_500, TaxBps: 500})
	if sum.Tax != 2_000 {
		t.Fatalf("expected tax 2000, got %d", sum.Tax)
	}
	if sum.Total != 48_500 {
		t.Fatalf("expected total 48500, got %d", sum.Total)
	}
}

func TestComputeNeverNegative(t *testing.T) {
	sum := Compute(Input{Subtotal: 30_000, PromoDiscount: 100_000})
	if sum.PromoDiscount != 30_000 {
		t.Fatalf("expected discount clamped to subtotal, got %d", sum.PromoDiscount)
	}
	if sum.Total != 0 {
		t.Fatalf("expected total 0, got %d", sum.Total)
	}
}

func TestEffectivePriceZeroDiscountIdentical(t *testing.T) {
	if EffectivePrice(12_345, 0) != EffectivePrice(12_345, -1) {
		t.Fatal("zero discount must price identically to absent discount")
	}
	if EffectivePrice(12_345, 0) != 12_345 {
		t.Fatal("zero discount must not change the unit price")
	}
}

func TestEffectivePriceRoundsHalfUp(t *testing.T) {
	// 10.01 at 25% off -> 7.5075 -> 7.51
	if got := EffectivePrice(1_001, 2500); got != 751 {
		t.Fatalf("expected 751, got %d", got)
	}
}

func TestSubtotalSkipsNonPositiveQty(t *testing.T) {
	lines := []Line{
		{Qty: 2, UnitPrice: 5_000},
		{Qty: 0, UnitPrice: 99_900},
		{Qty: 1, UnitPrice: 2_000, DiscountBps: 5000},
	}
	if got := SubtotalOf(lines); got != 11_000 {
		t.Fatalf("expected subtotal 11000, got %d", got)
	}
	if got := ItemDiscountOf(lines); got != 1_000 {
		t.Fatalf("expected item discount 1000, got %d", got)
	}
}
