package promo

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feastly/backend-feastly/internal/pricing"
)

var (
	// ErrInvalidCode is returned when no active promotion matches the code.
	ErrInvalidCode = errors.New("invalid promo code")
	// ErrExpired is returned when the promotion's validity window has closed.
	ErrExpired = errors.New("promo code expired")
	// ErrNotStarted is returned when the promotion is not active yet.
	ErrNotStarted = errors.New("promo code not active yet")
	// ErrMinOrderNotMet indicates the cart subtotal is below the promotion's floor.
	ErrMinOrderNotMet = errors.New("minimum order not met")
	// ErrWrongMerchant indicates a merchant-scoped promotion used on another merchant's cart.
	ErrWrongMerchant = errors.New("promo not valid for this merchant")
	// ErrUsageLimitReached indicates the promotion's global quota is exhausted.
	ErrUsageLimitReached = errors.New("promo usage limit reached")
	// ErrPerUserLimitReached indicates the caller exhausted their personal allowance.
	ErrPerUserLimitReached = errors.New("promo already used by this user")
)

// Scope describes where a promotion applies.
type Scope string

// Promotion scopes.
const (
	ScopeGlobal   Scope = "global"
	ScopeMerchant Scope = "merchant"
)

// Kind is the discount mechanism of a standard promotion.
type Kind string

// Discount kinds.
const (
	KindPercent Kind = "percentage"
	KindFlat    Kind = "flat"
)

// Deal distinguishes plain discounts from buy-X-get-Y promotions.
type Deal string

// Deal types.
const (
	DealStandard Deal = "standard"
	DealBxGy     Deal = "bxgy"
)

// Terms holds buy-X-get-Y parameters.
type Terms struct {
	BuyQty  int `json:"buyQty"`
	GetQty  int `json:"getQty"`
	MaxSets int `json:"maxSetsPerOrder"`
}

// Rule captures the runtime constraints and discount terms of a promotion.
// The pricing engine only ever reads rules; usage counters move through
// Service.Settle after an order lands.
type Rule struct {
	ID           uuid.UUID
	Code         string
	Description  string
	Scope        Scope
	MerchantID   string
	Kind         Kind
	Value        pricing.Money
	PercentBps   int32
	MinOrder     *pricing.Money
	MaxDiscount  *pricing.Money
	Deal         Deal
	Terms        *Terms
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	UsageLimit   *int32
	UsedCount    int32
	PerUserLimit *int32
	AutoApply    bool
	Priority     int32
}

// Validate evaluates the eligibility predicates in their fixed order,
// short-circuiting on the first failure so the surfaced reason is always the
// first blocking one. Code existence (the lookup) precedes this call.
func (r Rule) Validate(now time.Time, subtotal pricing.Money, merchantID string, perUserUsed int32) error {
	if r.ValidUntil != nil && r.ValidUntil.Before(now) {
		return ErrExpired
	}
	if r.ValidFrom != nil && r.ValidFrom.After(now) {
		return ErrNotStarted
	}
	if r.MinOrder != nil && *r.MinOrder > 0 && subtotal < *r.MinOrder {
		short := *r.MinOrder - subtotal
		return fmt.Errorf("minimum order of %s required, add %s more: %w",
			pricing.FormatMoney(*r.MinOrder), pricing.FormatMoney(short), ErrMinOrderNotMet)
	}
	if r.Scope == ScopeMerchant && merchantID != "" && r.MerchantID != merchantID {
		return ErrWrongMerchant
	}
	if r.UsageLimit != nil && *r.UsageLimit > 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	if r.PerUserLimit != nil && *r.PerUserLimit > 0 && perUserUsed >= *r.PerUserLimit {
		return ErrPerUserLimitReached
	}
	return nil
}

// RejectionReason maps a validation error to its metrics label, or "" when the
// error is not a validation rejection.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, ErrMinOrderNotMet):
		return "min_order"
	case errors.Is(err, ErrWrongMerchant):
		return "wrong_merchant"
	case errors.Is(err, ErrUsageLimitReached):
		return "usage_limit"
	case errors.Is(err, ErrPerUserLimitReached):
		return "per_user_limit"
	default:
		return ""
	}
}

// IsRejection reports whether the error is a normal validation rejection as
// opposed to an infrastructure failure.
func IsRejection(err error) bool {
	return RejectionReason(err) != ""
}
