package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feastly/backend-feastly/internal/pricing"
)

const ruleColumns = `id, code, description, scope, merchant_id, kind, value, percent_bps,
	min_order, max_discount, deal_type, buy_qty, get_qty, max_sets,
	valid_from, valid_until, usage_limit, used_count, per_user_limit, auto_apply, priority`

// PGStore persists promotions and usage records in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// GetByCode loads an active promotion by its upper-cased code.
func (s *PGStore) GetByCode(ctx context.Context, code string) (Rule, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM promo_codes WHERE code = $1 AND is_active`, code)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrInvalidCode
		}
		return Rule{}, fmt.Errorf("get promo by code: %w", err)
	}
	return rule, nil
}

// ListActive returns currently valid promotions visible to the merchant's
// storefront, highest priority first. Auto-apply candidates come back in the
// same list; callers pick the first with AutoApply set.
func (s *PGStore) ListActive(ctx context.Context, merchantID string, now time.Time) ([]Rule, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM promo_codes
		 WHERE is_active
		   AND (valid_until IS NULL OR valid_until >= $2)
		   AND (valid_from IS NULL OR valid_from <= $2)
		   AND (scope = 'global' OR ($1 <> '' AND scope = 'merchant' AND merchant_id = $1))
		 ORDER BY priority DESC, code ASC
		 LIMIT 50`, merchantID, now)
	if err != nil {
		return nil, fmt.Errorf("list active promos: %w", err)
	}
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promo: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// CountUserRedemptions counts the user's prior settled redemptions of a promotion.
func (s *PGStore) CountUserRedemptions(ctx context.Context, promoID uuid.UUID, userID string) (int32, error) {
	var count int32
	err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM promo_usage WHERE promo_code_id = $1 AND user_id = $2`,
		promoID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count promo usage: %w", err)
	}
	return count, nil
}

// RecordUsage inserts the usage row for an order, reporting whether this call
// actually created it. The primary key on (promo_code_id, order_id) makes the
// insert a no-op on retried settlements.
func (s *PGStore) RecordUsage(ctx context.Context, promoID, orderID uuid.UUID, userID string, amount pricing.Money) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`INSERT INTO promo_usage (promo_code_id, order_id, user_id, amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (promo_code_id, order_id) DO NOTHING`,
		promoID, orderID, userID, amount)
	if err != nil {
		return false, fmt.Errorf("record promo usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementUsedCount bumps the promotion's global redemption counter.
func (s *PGStore) IncrementUsedCount(ctx context.Context, promoID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = $1`, promoID)
	if err != nil {
		return fmt.Errorf("increment promo used count: %w", err)
	}
	return nil
}

func scanRule(row pgx.Row) (Rule, error) {
	var (
		r           Rule
		merchantID  *string
		description *string
		minOrder    *int64
		maxDiscount *int64
		buyQty      *int32
		getQty      *int32
		maxSets     *int32
	)
	err := row.Scan(
		&r.ID, &r.Code, &description, &r.Scope, &merchantID, &r.Kind, &r.Value, &r.PercentBps,
		&minOrder, &maxDiscount, &r.Deal, &buyQty, &getQty, &maxSets,
		&r.ValidFrom, &r.ValidUntil, &r.UsageLimit, &r.UsedCount, &r.PerUserLimit, &r.AutoApply, &r.Priority,
	)
	if err != nil {
		return Rule{}, err
	}
	if description != nil {
		r.Description = *description
	}
	if merchantID != nil {
		r.MerchantID = *merchantID
	}
	if minOrder != nil {
		v := pricing.Money(*minOrder)
		r.MinOrder = &v
	}
	if maxDiscount != nil {
		v := pricing.Money(*maxDiscount)
		r.MaxDiscount = &v
	}
	if r.Deal == DealBxGy {
		terms := Terms{BuyQty: 1, GetQty: 1, MaxSets: 1}
		if buyQty != nil && *buyQty > 0 {
			terms.BuyQty = int(*buyQty)
		}
		if getQty != nil && *getQty > 0 {
			terms.GetQty = int(*getQty)
		}
		if maxSets != nil && *maxSets > 0 {
			terms.MaxSets = int(*maxSets)
		}
		r.Terms = &terms
	}
	return r, nil
}
