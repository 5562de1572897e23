package promo

import (
	"sort"

	"github.com/feastly/backend-feastly/internal/cart"
	"github.com/feastly/backend-feastly/internal/pricing"
)

// FreeItemGrant records which concrete line, and how many of its units, a
// buy-X-get-Y promotion made free. UnitPrice carries the line's original
// price so the grant's value stays auditable even though nothing is charged.
type FreeItemGrant struct {
	ProductID  string        `json:"productId"`
	Name       string        `json:"name"`
	UnitPrice  pricing.Money `json:"unitPrice"`
	Qty        int           `json:"quantity"`
	SourceCode string        `json:"sourcePromoCode"`
}

// AllocateFreeItems selects the concrete units a buy-X-get-Y deal makes free.
// The walk is greedy over lines sorted ascending by unit price with original
// cart order breaking ties, so the cheapest eligible units always go first.
// That ordering is part of the contract: allocations must be reproducible and
// merchant-favorable, not customer-optimal.
func AllocateFreeItems(terms Terms, lines []cart.Line, sourceCode string) []FreeItemGrant {
	if terms.BuyQty <= 0 || terms.GetQty <= 0 || len(lines) == 0 {
		return nil
	}
	totalUnits := 0
	for _, ln := range lines {
		if ln.Qty > 0 {
			totalUnits += ln.Qty
		}
	}
	sets := totalUnits / terms.BuyQty
	if terms.MaxSets > 0 && sets > terms.MaxSets {
		sets = terms.MaxSets
	}
	if sets <= 0 {
		return nil
	}

	sorted := make([]cart.Line, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnitPrice < sorted[j].UnitPrice
	})

	remaining := sets * terms.GetQty
	grants := make([]FreeItemGrant, 0, len(sorted))
	for _, ln := range sorted {
		if remaining <= 0 {
			break
		}
		if ln.Qty <= 0 {
			continue
		}
		granted := ln.Qty
		if granted > remaining {
			granted = remaining
		}
		grants = append(grants, FreeItemGrant{
			ProductID:  ln.ID,
			Name:       ln.Name,
			UnitPrice:  ln.UnitPrice,
			Qty:        granted,
			SourceCode: sourceCode,
		})
		remaining -= granted
	}
	return grants
}

// GrantValue sums the monetary value of the granted units.
func GrantValue(grants []FreeItemGrant) pricing.Money {
	var total pricing.Money
	for _, g := range grants {
		total += g.UnitPrice * pricing.Money(g.Qty)
	}
	return total
}
