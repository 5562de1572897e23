package promo

import (
	"testing"

	"github.com/feastly/backend-feastly/internal/cart"
)

func threeLines() []cart.Line {
	return []cart.Line{
		{ID: "p-expensive", Name: "Thali", UnitPrice: 3_000, Qty: 2},
		{ID: "p-cheap", Name: "Samosa", UnitPrice: 1_000, Qty: 2},
		{ID: "p-mid", Name: "Lassi", UnitPrice: 2_000, Qty: 2},
	}
}

func TestAllocateCheapestUnitsFirst(t *testing.T) {
	// 6 units, buy 2 get 1, max 3 sets -> 3 free units, cheapest first.
	grants := AllocateFreeItems(Terms{BuyQty: 2, GetQty: 1, MaxSets: 3}, threeLines(), "B2G1")
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %+v", grants)
	}
	if grants[0].ProductID != "p-cheap" || grants[0].Qty != 2 {
		t.Fatalf("expected both samosas first, got %+v", grants[0])
	}
	if grants[1].ProductID != "p-mid" || grants[1].Qty != 1 {
		t.Fatalf("expected one lassi second, got %+v", grants[1])
	}
	if got := GrantValue(grants); got != 4_000 {
		t.Fatalf("expected grant value 4000, got %d", got)
	}
}

func TestAllocateMaxSetsCapsGrants(t *testing.T) {
	lines := threeLines()
	uncapped := GrantValue(AllocateFreeItems(Terms{BuyQty: 2, GetQty: 1, MaxSets: 3}, lines, "X"))
	capped := GrantValue(AllocateFreeItems(Terms{BuyQty: 2, GetQty: 1, MaxSets: 1}, lines, "X"))
	if capped >= uncapped {
		t.Fatalf("expected cap to reduce value: capped=%d uncapped=%d", capped, uncapped)
	}
	if capped != 1_000 {
		t.Fatalf("single set should free one cheapest unit, got %d", capped)
	}
}

func TestAllocateValueGrowsWithQuantity(t *testing.T) {
	terms := Terms{BuyQty: 2, GetQty: 1, MaxSets: 10}
	prev := int64(-1)
	for qty := 1; qty <= 8; qty++ {
		lines := []cart.Line{{ID: "p1", UnitPrice: 1_500, Qty: qty}}
		v := GrantValue(AllocateFreeItems(terms, lines, "X"))
		if v < prev {
			t.Fatalf("grant value decreased at qty=%d: %d < %d", qty, v, prev)
		}
		prev = v
	}
}

func TestAllocateBelowBuyThreshold(t *testing.T) {
	lines := []cart.Line{{ID: "p1", UnitPrice: 1_000, Qty: 1}}
	if grants := AllocateFreeItems(Terms{BuyQty: 2, GetQty: 1, MaxSets: 1}, lines, "X"); grants != nil {
		t.Fatalf("expected nil, got %+v", grants)
	}
}

func TestAllocateStableTieBreakOnEqualPrices(t *testing.T) {
	lines := []cart.Line{
		{ID: "first", UnitPrice: 1_000, Qty: 1},
		{ID: "second", UnitPrice: 1_000, Qty: 1},
	}
	grants := AllocateFreeItems(Terms{BuyQty: 2, GetQty: 1, MaxSets: 1}, lines, "X")
	if len(grants) != 1 || grants[0].ProductID != "first" {
		t.Fatalf("expected earlier line to win the tie, got %+v", grants)
	}
}

func TestAllocateDegenerateTerms(t *testing.T) {
	lines := threeLines()
	if grants := AllocateFreeItems(Terms{BuyQty: 0, GetQty: 1, MaxSets: 1}, lines, "X"); grants != nil {
		t.Fatalf("buyQty 0 must grant nothing, got %+v", grants)
	}
	if grants := AllocateFreeItems(Terms{BuyQty: 2, GetQty: 0, MaxSets: 1}, lines, "X"); grants != nil {
		t.Fatalf("getQty 0 must grant nothing, got %+v", grants)
	}
}

func TestAllocateGetQtyBoundedByCartUnits(t *testing.T) {
	// Free units can never exceed what the cart actually holds.
	lines := []cart.Line{{ID: "p1", UnitPrice: 1_000, Qty: 3}}
	grants := AllocateFreeItems(Terms{BuyQty: 1, GetQty: 5, MaxSets: 2}, lines, "X")
	total := 0
	for _, g := range grants {
		total += g.Qty
	}
	if total != 3 {
		t.Fatalf("expected grants capped at 3 units, got %d", total)
	}
}
