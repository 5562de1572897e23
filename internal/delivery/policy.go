package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feastly/backend-feastly/internal/pricing"
)

// Keys read from the app_settings table.
const (
	settingFeeEnabled   = "delivery_fee_enabled"
	settingBaseFee      = "delivery_base_fee"
	settingBaseRadiusKm = "delivery_base_radius_km"
	settingPerKmFee     = "delivery_per_km_fee"
	settingWeeklyFees   = "delivery_base_fee_weekly"
)

// PolicySource serves the current delivery fee policy. It starts from the
// configured defaults and only changes state through an explicit Refresh, so
// reads stay cheap and a quote in flight always sees one consistent policy.
type PolicySource struct {
	Pool     *pgxpool.Pool
	Defaults Policy
	Now      func() time.Time

	mu      sync.RWMutex
	current Policy
	weekly  *[7]pricing.Money
}

// NewPolicySource returns a source serving the defaults until refreshed.
func NewPolicySource(pool *pgxpool.Pool, defaults Policy) *PolicySource {
	return &PolicySource{Pool: pool, Defaults: defaults, current: defaults}
}

// Current returns the policy in force, applying today's weekly base fee
// override when one is configured.
func (s *PolicySource) Current() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.current
	if s.weekly != nil {
		if fee := s.weekly[s.now().Weekday()]; fee > 0 {
			p.BaseFee = fee
		}
	}
	return p
}

// Refresh reloads overrides from app_settings. Missing keys keep their
// default; a failed read leaves the previous policy untouched.
func (s *PolicySource) Refresh(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT key, value FROM app_settings WHERE key LIKE 'delivery_%'`)
	if err != nil {
		return fmt.Errorf("load delivery settings: %w", err)
	}
	defer rows.Close()

	next := s.Defaults
	var weekly *[7]pricing.Money
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan delivery setting: %w", err)
		}
		switch key {
		case settingFeeEnabled:
			if b, err := strconv.ParseBool(value); err == nil {
				next.Enabled = b
			}
		case settingBaseFee:
			if v, err := strconv.ParseInt(value, 10, 64); err == nil && v >= 0 {
				next.BaseFee = v
			}
		case settingBaseRadiusKm:
			if v, err := strconv.ParseFloat(value, 64); err == nil && v > 0 {
				next.BaseRadiusKm = v
			}
		case settingPerKmFee:
			if v, err := strconv.ParseInt(value, 10, 64); err == nil && v >= 0 {
				next.PerKmFee = v
			}
		case settingWeeklyFees:
			var fees [7]pricing.Money
			if err := json.Unmarshal([]byte(value), &fees); err == nil {
				weekly = &fees
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read delivery settings: %w", err)
	}

	s.mu.Lock()
	s.current = next
	s.weekly = weekly
	s.mu.Unlock()
	return nil
}

func (s *PolicySource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
