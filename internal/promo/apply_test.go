package promo

import (
	"testing"

	"github.com/feastly/backend-feastly/internal/cart"
)

func TestApplyPercentageClampedToMaxDiscount(t *testing.T) {
	max := int64(8_000)
	rule := Rule{Deal: DealStandard, Kind: KindPercent, PercentBps: 2000, MaxDiscount: &max}
	// 20% of 500.00 = 100.00, clamped to 80.00
	app := Apply(rule, 50_000, nil)
	if app.Discount != 8_000 {
		t.Fatalf("expected 8000, got %d", app.Discount)
	}
}

func TestApplyPercentageWithoutCap(t *testing.T) {
	rule := Rule{Deal: DealStandard, Kind: KindPercent, PercentBps: 2000}
	if app := Apply(rule, 50_000, nil); app.Discount != 10_000 {
		t.Fatalf("expected 10000, got %d", app.Discount)
	}
}

func TestApplyFlatClampedToSubtotal(t *testing.T) {
	rule := Rule{Deal: DealStandard, Kind: KindFlat, Value: 100_000}
	app := Apply(rule, 30_000, nil)
	if app.Discount != 30_000 {
		t.Fatalf("expected discount clamped to subtotal, got %d", app.Discount)
	}
}

func TestApplyBxGyUsesGrantValueNotStoredValue(t *testing.T) {
	rule := Rule{
		Deal:  DealBxGy,
		Value: 99_999, // stored value must be ignored for bxgy
		Code:  "B2G1",
		Terms: &Terms{BuyQty: 2, GetQty: 1, MaxSets: 2},
	}
	lines := []cart.Line{{ID: "p1", Name: "Paratha", UnitPrice: 5_000, Qty: 5}}
	app := Apply(rule, 25_000, lines)
	// sets = min(floor(5/2), 2) = 2 -> 2 free units of the only line
	if app.Discount != 10_000 {
		t.Fatalf("expected 10000, got %d", app.Discount)
	}
	if len(app.FreeItems) != 1 || app.FreeItems[0].Qty != 2 {
		t.Fatalf("unexpected grants: %+v", app.FreeItems)
	}
}

func TestApplyBxGyBelowThresholdYieldsNoteNotError(t *testing.T) {
	rule := Rule{Deal: DealBxGy, Code: "B5G1", Terms: &Terms{BuyQty: 5, GetQty: 1, MaxSets: 1}}
	lines := []cart.Line{{ID: "p1", UnitPrice: 5_000, Qty: 2}}
	app := Apply(rule, 10_000, lines)
	if app.Discount != 0 || len(app.FreeItems) != 0 {
		t.Fatalf("expected zero outcome, got %+v", app)
	}
	if app.Note == "" {
		t.Fatal("expected an explanatory note for the zero-value outcome")
	}
}
