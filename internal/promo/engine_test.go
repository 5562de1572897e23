package promo

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestValidateOrderOfPredicates(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)
	min := int64(50_000)
	limit := int32(1)

	// Expired AND below minimum: expiry must win because it is checked first.
	rule := Rule{ValidUntil: &past, MinOrder: &min}
	if err := rule.Validate(testNow, 10_000, "", 0); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// Not started yet.
	rule = Rule{ValidFrom: &future}
	if err := rule.Validate(testNow, 10_000, "", 0); err != ErrNotStarted {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}

	// Minimum order before merchant scope.
	rule = Rule{MinOrder: &min, Scope: ScopeMerchant, MerchantID: "m1"}
	err := rule.Validate(testNow, 10_000, "m2", 0)
	if RejectionReason(err) != "min_order" {
		t.Fatalf("expected min_order rejection, got %v", err)
	}

	// Merchant scope before usage limits.
	rule = Rule{Scope: ScopeMerchant, MerchantID: "m1", UsageLimit: &limit, UsedCount: 5}
	if err := rule.Validate(testNow, 10_000, "m2", 0); err != ErrWrongMerchant {
		t.Fatalf("expected ErrWrongMerchant, got %v", err)
	}

	// Global usage limit before the per-user one.
	rule = Rule{UsageLimit: &limit, UsedCount: 1, PerUserLimit: &limit}
	if err := rule.Validate(testNow, 10_000, "", 9); err != ErrUsageLimitReached {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}

	// Per-user limit last.
	rule = Rule{PerUserLimit: &limit}
	if err := rule.Validate(testNow, 10_000, "", 1); err != ErrPerUserLimitReached {
		t.Fatalf("expected ErrPerUserLimitReached, got %v", err)
	}
}

func TestValidateMinOrderReportsShortfall(t *testing.T) {
	min := int64(50_000)
	rule := Rule{MinOrder: &min}
	err := rule.Validate(testNow, 42_500, "", 0)
	if err == nil {
		t.Fatal("expected rejection")
	}
	want := "minimum order of ₹500.00 required, add ₹75.00 more"
	if got := err.Error(); got[:len(want)] != want {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestValidateBoundaryInstants(t *testing.T) {
	// validUntil == now is still valid; validFrom == now is already active.
	rule := Rule{ValidFrom: &testNow, ValidUntil: &testNow}
	if err := rule.Validate(testNow, 10_000, "", 0); err != nil {
		t.Fatalf("expected valid at boundary, got %v", err)
	}
}

func TestValidateGlobalScopeIgnoresMerchant(t *testing.T) {
	rule := Rule{Scope: ScopeGlobal}
	if err := rule.Validate(testNow, 10_000, "anything", 0); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateZeroLimitsMeanUnlimited(t *testing.T) {
	zero := int32(0)
	rule := Rule{UsageLimit: &zero, UsedCount: 9999, PerUserLimit: &zero}
	if err := rule.Validate(testNow, 10_000, "", 9999); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}
