package promo

import (
	"github.com/feastly/backend-feastly/internal/cart"
	"github.com/feastly/backend-feastly/internal/pricing"
)

// Application is the monetary outcome of an accepted promotion.
type Application struct {
	Discount  pricing.Money
	FreeItems []FreeItemGrant
	// Note explains a zero-value outcome, e.g. a bxgy deal the cart does not
	// yet qualify for. Empty when the discount speaks for itself.
	Note string
}

// Apply turns an accepted rule into a discount amount against the current
// cart. For buy-X-get-Y deals the discount is the value of the allocated free
// units, never the rule's stored discount figure.
func Apply(r Rule, subtotal pricing.Money, lines []cart.Line) Application {
	if r.Deal == DealBxGy {
		terms := Terms{BuyQty: 1, GetQty: 1, MaxSets: 1}
		if r.Terms != nil {
			terms = *r.Terms
		}
		grants := AllocateFreeItems(terms, lines, r.Code)
		app := Application{Discount: GrantValue(grants), FreeItems: grants}
		if len(grants) == 0 {
			app.Note = "offer applied but the cart does not qualify for a free set yet"
		}
		return app
	}

	var discount pricing.Money
	switch r.Kind {
	case KindPercent:
		discount = pricing.ScaleBps(subtotal, r.PercentBps)
		if r.MaxDiscount != nil && *r.MaxDiscount > 0 && discount > *r.MaxDiscount {
			discount = *r.MaxDiscount
		}
	default:
		discount = r.Value
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return Application{Discount: discount}
}
