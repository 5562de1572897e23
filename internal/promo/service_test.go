package promo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/feastly/backend-feastly/internal/pricing"
)

type fakeStore struct {
	rules       map[string]Rule
	userCounts  map[string]int32
	usages      map[string]bool // promoID|orderID
	increments  map[uuid.UUID]int
	failOnCount bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rules:      map[string]Rule{},
		userCounts: map[string]int32{},
		usages:     map[string]bool{},
		increments: map[uuid.UUID]int{},
	}
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (Rule, error) {
	rule, ok := f.rules[code]
	if !ok {
		return Rule{}, ErrInvalidCode
	}
	return rule, nil
}

func (f *fakeStore) ListActive(_ context.Context, merchantID string, _ time.Time) ([]Rule, error) {
	var out []Rule
	for _, r := range f.rules {
		if r.Scope == ScopeGlobal || r.MerchantID == merchantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUserRedemptions(_ context.Context, promoID uuid.UUID, userID string) (int32, error) {
	if f.failOnCount {
		return 0, errors.New("db down")
	}
	return f.userCounts[promoID.String()+"|"+userID], nil
}

func (f *fakeStore) RecordUsage(_ context.Context, promoID, orderID uuid.UUID, _ string, _ pricing.Money) (bool, error) {
	key := promoID.String() + "|" + orderID.String()
	if f.usages[key] {
		return false, nil
	}
	f.usages[key] = true
	return true, nil
}

func (f *fakeStore) IncrementUsedCount(_ context.Context, promoID uuid.UUID) error {
	f.increments[promoID]++
	return nil
}

func newTestService(store Store) *Service {
	return &Service{
		Store: store,
		Now:   func() time.Time { return testNow },
	}
}

func TestServiceValidateNormalizesCode(t *testing.T) {
	store := newFakeStore()
	store.rules["SAVE20"] = Rule{ID: uuid.New(), Code: "SAVE20", Deal: DealStandard, Kind: KindPercent, PercentBps: 2000}
	svc := newTestService(store)

	rule, err := svc.Validate(context.Background(), "  save20 ", 50_000, "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, "SAVE20", rule.Code)
}

func TestServiceValidateUnknownCode(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Validate(context.Background(), "NOPE", 50_000, "u1", "m1")
	require.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.Validate(context.Background(), "   ", 50_000, "u1", "m1")
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestServiceValidatePerUserLimit(t *testing.T) {
	store := newFakeStore()
	limit := int32(1)
	id := uuid.New()
	store.rules["ONCE"] = Rule{ID: id, Code: "ONCE", PerUserLimit: &limit}
	store.userCounts[id.String()+"|u1"] = 1
	svc := newTestService(store)

	_, err := svc.Validate(context.Background(), "ONCE", 50_000, "u1", "m1")
	require.ErrorIs(t, err, ErrPerUserLimitReached)

	// A different user is unaffected.
	_, err = svc.Validate(context.Background(), "ONCE", 50_000, "u2", "m1")
	require.NoError(t, err)
}

func TestServiceValidateDefaultPerUserLimit(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.rules["DFLT"] = Rule{ID: id, Code: "DFLT"} // no explicit per-user limit
	store.userCounts[id.String()+"|u1"] = 2
	svc := newTestService(store)
	svc.DefaultPerUserLimit = 2

	_, err := svc.Validate(context.Background(), "DFLT", 50_000, "u1", "m1")
	require.ErrorIs(t, err, ErrPerUserLimitReached)
}

func TestServiceValidateStoreFailureIsNotRejection(t *testing.T) {
	store := newFakeStore()
	limit := int32(1)
	store.rules["ONCE"] = Rule{ID: uuid.New(), Code: "ONCE", PerUserLimit: &limit}
	store.failOnCount = true
	svc := newTestService(store)

	_, err := svc.Validate(context.Background(), "ONCE", 50_000, "u1", "m1")
	require.Error(t, err)
	require.False(t, IsRejection(err))
}

func TestServiceSettleIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	promoID, orderID := uuid.New(), uuid.New()

	require.NoError(t, svc.Settle(context.Background(), promoID, orderID, "u1", 5_000))
	require.NoError(t, svc.Settle(context.Background(), promoID, orderID, "u1", 5_000))
	require.Equal(t, 1, store.increments[promoID], "retried settlement must not double-increment")

	// A different order for the same promo counts separately.
	require.NoError(t, svc.Settle(context.Background(), promoID, uuid.New(), "u1", 5_000))
	require.Equal(t, 2, store.increments[promoID])
}

func TestServiceSettleSkipsNilIDs(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	require.NoError(t, svc.Settle(context.Background(), uuid.Nil, uuid.New(), "u1", 5_000))
	require.Empty(t, store.usages)
}

func TestUserMessages(t *testing.T) {
	require.Equal(t, "This code is not valid for this restaurant", UserMessage(ErrWrongMerchant))
	require.Equal(t, "You have already used this promo code", UserMessage(ErrPerUserLimitReached))
	require.Equal(t, "Invalid promo code", UserMessage(ErrInvalidCode))
	// Min-order rejections surface the computed shortfall verbatim.
	min := int64(50_000)
	err := Rule{MinOrder: &min}.Validate(testNow, 40_000, "", 0)
	require.Contains(t, UserMessage(err), "add ₹100.00 more")
}
