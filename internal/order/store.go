package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feastly/backend-feastly/internal/pricing"
)

// ErrNotFound indicates the order does not exist for the requesting user.
var ErrNotFound = errors.New("order not found")

// Item is one persisted order line. Free units granted by a promotion are
// stored as their own zero-charge rows so the receipt stays auditable.
type Item struct {
	ProductID       string        `json:"productId"`
	Name            string        `json:"name"`
	UnitPrice       pricing.Money `json:"unitPrice"`
	Qty             int           `json:"quantity"`
	DiscountBps     int32         `json:"discountBps,omitempty"`
	IsFree          bool          `json:"isFree,omitempty"`
	SourcePromoCode string        `json:"sourcePromoCode,omitempty"`
}

// Order is the persisted outcome of a submission. Pricing holds the full
// quote snapshot as it was charged; reads never recompute it.
type Order struct {
	ID           uuid.UUID       `json:"id"`
	UserID       string          `json:"-"`
	MerchantID   string          `json:"merchantId"`
	MerchantName string          `json:"merchantName"`
	PromoCodeID  *uuid.UUID      `json:"-"`
	PromoCode    string          `json:"promoCode,omitempty"`
	Status       string          `json:"status"`
	Total        pricing.Money   `json:"total"`
	Pricing      json.RawMessage `json:"pricing"`
	DropLat      float64         `json:"dropLat"`
	DropLng      float64         `json:"dropLng"`
	DropLocality string          `json:"dropLocality,omitempty"`
	Items        []Item          `json:"items"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// PGStore persists orders in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Insert writes the order and its items in one transaction.
func (s *PGStore) Insert(ctx context.Context, o *Order) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, merchant_id, merchant_name, promo_code_id, promo_code,
		                     status, total, pricing, drop_lat, drop_lng, drop_locality, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.UserID, o.MerchantID, o.MerchantName, o.PromoCodeID, nullIfEmpty(o.PromoCode),
		o.Status, o.Total, o.Pricing, o.DropLat, o.DropLng, nullIfEmpty(o.DropLocality), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for _, it := range o.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, name, unit_price, qty, discount_bps, is_free, source_promo_code)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, it.ProductID, it.Name, it.UnitPrice, it.Qty, it.DiscountBps, it.IsFree, nullIfEmpty(it.SourcePromoCode))
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

// GetByID loads a user's order with its items.
func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID, userID string) (Order, error) {
	var (
		o            Order
		promoCode    *string
		dropLocality *string
	)
	err := s.Pool.QueryRow(ctx,
		`SELECT id, user_id, merchant_id, merchant_name, promo_code_id, promo_code,
		        status, total, pricing, drop_lat, drop_lng, drop_locality, created_at
		 FROM orders WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&o.ID, &o.UserID, &o.MerchantID, &o.MerchantName, &o.PromoCodeID, &promoCode,
			&o.Status, &o.Total, &o.Pricing, &o.DropLat, &o.DropLng, &dropLocality, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	if promoCode != nil {
		o.PromoCode = *promoCode
	}
	if dropLocality != nil {
		o.DropLocality = *dropLocality
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT product_id, name, unit_price, qty, discount_bps, is_free, COALESCE(source_promo_code, '')
		 FROM order_items WHERE order_id = $1 ORDER BY is_free, product_id`, id)
	if err != nil {
		return Order{}, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPrice, &it.Qty, &it.DiscountBps, &it.IsFree, &it.SourcePromoCode); err != nil {
			return Order{}, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// ListByUser returns the user's most recent orders without their items.
func (s *PGStore) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, user_id, merchant_id, merchant_name, promo_code_id, COALESCE(promo_code, ''),
		        status, total, pricing, drop_lat, drop_lng, COALESCE(drop_locality, ''), created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		err := rows.Scan(&o.ID, &o.UserID, &o.MerchantID, &o.MerchantName, &o.PromoCodeID, &o.PromoCode,
			&o.Status, &o.Total, &o.Pricing, &o.DropLat, &o.DropLng, &o.DropLocality, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
