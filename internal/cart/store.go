package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/feastly/backend-feastly/internal/obs"
	"github.com/feastly/backend-feastly/internal/pricing"
)

// MaxQtyPerLine caps how many units of a single item one order may carry.
const MaxQtyPerLine = 10

// ErrDifferentMerchant is returned when adding an item while the cart holds
// another merchant's lines. The caller must obtain confirmation and Clear
// before retrying; the store never merges or replaces silently.
var ErrDifferentMerchant = errors.New("cart holds items from a different merchant")

// Line is one product offering inside the active cart.
type Line struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	UnitPrice   pricing.Money `json:"unitPrice"`
	Qty         int           `json:"quantity"`
	DiscountBps int32         `json:"discountBps,omitempty"`
}

// Snapshot is the read-only view handed to pricing surfaces. A nil snapshot
// means "no cart"; an empty line list is never exposed.
type Snapshot struct {
	MerchantID        string        `json:"merchantId"`
	MerchantName      string        `json:"merchantName"`
	Lines             []Line        `json:"lines"`
	Subtotal          pricing.Money `json:"subtotal"`
	ItemDiscountTotal pricing.Money `json:"itemDiscountTotal"`
}

type state struct {
	MerchantID   string `json:"merchantId"`
	MerchantName string `json:"merchantName"`
	Lines        []Line `json:"lines"`
}

// Store serializes all cart mutations behind a single mutex and mirrors every
// committed state to Redis as a best-effort snapshot. Persistence failures are
// logged and never roll back an applied mutation.
type Store struct {
	mu    sync.Mutex
	carts map[string]*state

	R      *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

// NewStore constructs a cart store backed by the provided Redis client.
func NewStore(r *redis.Client, ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{carts: map[string]*state{}, R: r, TTL: ttl, Logger: logger}
}

func cartKey(userID string) string { return "cart:" + userID }

// Add merges a line into the user's cart, creating the cart when absent.
// Quantities merge by line id and are capped at MaxQtyPerLine, on first
// insert as well as on merge.
func (s *Store) Add(ctx context.Context, userID string, ln Line, merchantID, merchantName string) error {
	if ln.Qty < 1 {
		ln.Qty = 1
	}
	if ln.Qty > MaxQtyPerLine {
		ln.Qty = MaxQtyPerLine
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadLocked(ctx, userID)
	if st != nil && st.MerchantID != merchantID {
		return ErrDifferentMerchant
	}
	if st == nil {
		st = &state{MerchantID: merchantID, MerchantName: merchantName}
		s.carts[userID] = st
	}
	merged := false
	for i := range st.Lines {
		if st.Lines[i].ID == ln.ID {
			qty := st.Lines[i].Qty + ln.Qty
			if qty > MaxQtyPerLine {
				qty = MaxQtyPerLine
			}
			st.Lines[i].Qty = qty
			merged = true
			break
		}
	}
	if !merged {
		st.Lines = append(st.Lines, ln)
	}
	s.persistLocked(ctx, userID)
	countMutation("add")
	return nil
}

// UpdateQuantity sets a line quantity, clamped to MaxQtyPerLine. A quantity
// of zero or less removes the line; removing the last line collapses the
// cart to "no cart". Unknown line ids are a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, userID, id string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadLocked(ctx, userID)
	if st == nil {
		return
	}
	if qty > MaxQtyPerLine {
		qty = MaxQtyPerLine
	}
	for i := range st.Lines {
		if st.Lines[i].ID != id {
			continue
		}
		if qty <= 0 {
			st.Lines = append(st.Lines[:i], st.Lines[i+1:]...)
		} else {
			st.Lines[i].Qty = qty
		}
		break
	}
	if len(st.Lines) == 0 {
		delete(s.carts, userID)
		s.dropSnapshot(ctx, userID)
	} else {
		s.persistLocked(ctx, userID)
	}
	countMutation("update_qty")
}

// Remove deletes a line from the cart.
func (s *Store) Remove(ctx context.Context, userID, id string) {
	s.UpdateQuantity(ctx, userID, id, 0)
}

// Clear discards the cart entirely, including the persisted snapshot.
func (s *Store) Clear(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	s.dropSnapshot(ctx, userID)
	countMutation("clear")
}

// Snapshot returns a read-only copy of the user's cart with derived totals,
// or nil when the user has no cart.
func (s *Store) Snapshot(ctx context.Context, userID string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadLocked(ctx, userID)
	if st == nil || len(st.Lines) == 0 {
		return nil
	}
	lines := make([]Line, len(st.Lines))
	copy(lines, st.Lines)
	return &Snapshot{
		MerchantID:        st.MerchantID,
		MerchantName:      st.MerchantName,
		Lines:             lines,
		Subtotal:          pricing.SubtotalOf(toPricingLines(lines)),
		ItemDiscountTotal: pricing.ItemDiscountOf(toPricingLines(lines)),
	}
}

func toPricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, ln := range lines {
		out = append(out, pricing.Line{Qty: ln.Qty, UnitPrice: ln.UnitPrice, DiscountBps: ln.DiscountBps})
	}
	return out
}

// loadLocked returns the in-memory cart, rehydrating from Redis on a miss.
// Corrupt snapshots are discarded rather than surfaced.
func (s *Store) loadLocked(ctx context.Context, userID string) *state {
	if st, ok := s.carts[userID]; ok {
		return st
	}
	if s.R == nil {
		return nil
	}
	raw, err := s.R.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		return nil
	}
	var st state
	if err := json.Unmarshal(raw, &st); err != nil || len(st.Lines) == 0 {
		_ = s.R.Del(ctx, cartKey(userID)).Err()
		return nil
	}
	s.carts[userID] = &st
	return &st
}

func (s *Store) persistLocked(ctx context.Context, userID string) {
	if s.R == nil {
		return
	}
	st, ok := s.carts[userID]
	if !ok {
		return
	}
	raw, err := json.Marshal(st)
	if err == nil {
		err = s.R.Set(ctx, cartKey(userID), raw, s.TTL).Err()
	}
	if err != nil {
		if obs.CartPersistFailures != nil {
			obs.CartPersistFailures.Inc()
		}
		s.Logger.Warn().Err(err).Str("user_id", userID).Msg("cart snapshot write failed")
	}
}

func (s *Store) dropSnapshot(ctx context.Context, userID string) {
	if s.R == nil {
		return
	}
	if err := s.R.Del(ctx, cartKey(userID)).Err(); err != nil {
		s.Logger.Warn().Err(err).Str("user_id", userID).Msg("cart snapshot delete failed")
	}
}

func countMutation(action string) {
	if obs.CartMutations != nil {
		obs.CartMutations.WithLabelValues(action).Inc()
	}
}
