package cart

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour, zerolog.Nop()), mr
}

func TestAddMergesAndCapsQuantity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", Name: "Samosa", UnitPrice: 2_000, Qty: 6}, "m1", "Patiala Kitchen"))
	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", Name: "Samosa", UnitPrice: 2_000, Qty: 6}, "m1", "Patiala Kitchen"))

	snap := s.Snapshot(ctx, "u1")
	require.NotNil(t, snap)
	require.Len(t, snap.Lines, 1)
	require.Equal(t, MaxQtyPerLine, snap.Lines[0].Qty)
}

func TestAddCapsOnFirstInsert(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", Name: "Lassi", UnitPrice: 5_000, Qty: 25}, "m1", "M"))
	snap := s.Snapshot(ctx, "u1")
	require.Equal(t, MaxQtyPerLine, snap.Lines[0].Qty)
}

func TestAddDifferentMerchantRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", UnitPrice: 2_000, Qty: 1}, "m1", "First"))
	err := s.Add(ctx, "u1", Line{ID: "p9", UnitPrice: 3_000, Qty: 1}, "m2", "Second")
	require.ErrorIs(t, err, ErrDifferentMerchant)

	// cart untouched
	snap := s.Snapshot(ctx, "u1")
	require.Equal(t, "m1", snap.MerchantID)
	require.Len(t, snap.Lines, 1)

	// clear-then-add is the sanctioned path
	s.Clear(ctx, "u1")
	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p9", UnitPrice: 3_000, Qty: 1}, "m2", "Second"))
	require.Equal(t, "m2", s.Snapshot(ctx, "u1").MerchantID)
}

func TestUpdateQuantityClampIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", UnitPrice: 2_000, Qty: 1}, "m1", "M"))

	s.UpdateQuantity(ctx, "u1", "p1", 42)
	first := s.Snapshot(ctx, "u1")
	s.UpdateQuantity(ctx, "u1", "p1", 42)
	second := s.Snapshot(ctx, "u1")
	require.Equal(t, first, second)
	require.Equal(t, MaxQtyPerLine, second.Lines[0].Qty)
}

func TestLastLineRemovalCollapsesToNoCart(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", UnitPrice: 2_000, Qty: 2}, "m1", "M"))

	s.UpdateQuantity(ctx, "u1", "p1", 0)
	require.Nil(t, s.Snapshot(ctx, "u1"))
	require.False(t, mr.Exists("cart:u1"))
}

func TestSubtotalUsesEffectivePrice(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	// 2 x 100.00 at 10% off, plus 1 x 50.00 with explicit zero discount
	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", UnitPrice: 10_000, Qty: 2, DiscountBps: 1000}, "m1", "M"))
	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p2", UnitPrice: 5_000, Qty: 1, DiscountBps: 0}, "m1", "M"))

	snap := s.Snapshot(ctx, "u1")
	require.Equal(t, int64(23_000), snap.Subtotal)
	require.Equal(t, int64(2_000), snap.ItemDiscountTotal)
}

func TestRehydrateFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	first := NewStore(client, time.Hour, zerolog.Nop())
	require.NoError(t, first.Add(ctx, "u1", Line{ID: "p1", Name: "Kulcha", UnitPrice: 8_000, Qty: 3}, "m1", "M"))

	// a fresh store (new process) sees the persisted snapshot
	second := NewStore(client, time.Hour, zerolog.Nop())
	snap := second.Snapshot(ctx, "u1")
	require.NotNil(t, snap)
	require.Equal(t, "m1", snap.MerchantID)
	require.Equal(t, 3, snap.Lines[0].Qty)
}

func TestPersistenceFailureDoesNotBlockMutation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewStore(client, time.Hour, zerolog.Nop())
	ctx := context.Background()

	mr.Close()
	require.NoError(t, s.Add(ctx, "u1", Line{ID: "p1", UnitPrice: 2_000, Qty: 1}, "m1", "M"))
	snap := s.Snapshot(ctx, "u1")
	require.NotNil(t, snap)
	require.Len(t, snap.Lines, 1)
}

func TestCorruptSnapshotDiscarded(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set("cart:u1", "{not json"))
	require.Nil(t, s.Snapshot(context.Background(), "u1"))
}
