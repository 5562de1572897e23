package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feastly/backend-feastly/internal/obs"
	"github.com/feastly/backend-feastly/internal/pricing"
)

// Store captures the persistence methods the service needs.
type Store interface {
	GetByCode(ctx context.Context, code string) (Rule, error)
	ListActive(ctx context.Context, merchantID string, now time.Time) ([]Rule, error)
	CountUserRedemptions(ctx context.Context, promoID uuid.UUID, userID string) (int32, error)
	RecordUsage(ctx context.Context, promoID, orderID uuid.UUID, userID string, amount pricing.Money) (bool, error)
	IncrementUsedCount(ctx context.Context, promoID uuid.UUID) error
}

// Service evaluates promotion eligibility and settles usage after orders land.
type Service struct {
	Store               Store
	Now                 func() time.Time
	DefaultPerUserLimit int
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Validate resolves a candidate code and runs the ordered eligibility
// pipeline against the provided subtotal. It performs no mutation; the
// returned rule's amounts are computed downstream by Apply. Rejections are
// ordinary negative results distinguished by IsRejection.
func (s *Service) Validate(ctx context.Context, code string, subtotal pricing.Money, userID, merchantID string) (Rule, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		s.countValidation(ErrInvalidCode)
		return Rule{}, ErrInvalidCode
	}
	rule, err := s.Store.GetByCode(ctx, normalized)
	if err != nil {
		s.countValidation(err)
		return Rule{}, err
	}
	perUserUsed := int32(0)
	limit := rule.PerUserLimit
	if limit == nil && s.DefaultPerUserLimit > 0 {
		dflt := int32(s.DefaultPerUserLimit)
		limit = &dflt
		rule.PerUserLimit = limit
	}
	if limit != nil && *limit > 0 && userID != "" {
		perUserUsed, err = s.Store.CountUserRedemptions(ctx, rule.ID, userID)
		if err != nil {
			return Rule{}, err
		}
	}
	if err := rule.Validate(s.now(), subtotal, merchantID, perUserUsed); err != nil {
		s.countValidation(err)
		return Rule{}, err
	}
	s.countValidation(nil)
	return rule, nil
}

// ListActive returns promotions a storefront may surface, highest priority first.
func (s *Service) ListActive(ctx context.Context, merchantID string) ([]Rule, error) {
	return s.Store.ListActive(ctx, merchantID, s.now())
}

// Settle records a redemption after its order has been persisted. The write
// is idempotent on (promoID, orderID): retried settlements neither duplicate
// the usage row nor double-increment the global counter.
func (s *Service) Settle(ctx context.Context, promoID, orderID uuid.UUID, userID string, amount pricing.Money) error {
	if promoID == uuid.Nil || orderID == uuid.Nil {
		return nil
	}
	if amount < 0 {
		amount = 0
	}
	inserted, err := s.Store.RecordUsage(ctx, promoID, orderID, userID, amount)
	if err != nil {
		s.countSettlement("error")
		return err
	}
	if !inserted {
		s.countSettlement("duplicate")
		return nil
	}
	if err := s.Store.IncrementUsedCount(ctx, promoID); err != nil {
		s.countSettlement("error")
		return err
	}
	s.countSettlement("ok")
	return nil
}

func (s *Service) countValidation(err error) {
	if obs.PromoValidations == nil {
		return
	}
	label := "valid"
	if err != nil {
		label = RejectionReason(err)
		if label == "" {
			label = "error"
		}
	}
	obs.PromoValidations.WithLabelValues(label).Inc()
}

func (s *Service) countSettlement(outcome string) {
	if obs.SettlementsProcessed != nil {
		obs.SettlementsProcessed.WithLabelValues(outcome).Inc()
	}
}

// UserMessage renders a validation error as the user-facing rejection reason.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrMinOrderNotMet):
		return err.Error()
	case errors.Is(err, ErrInvalidCode):
		return "Invalid promo code"
	case errors.Is(err, ErrExpired):
		return "This promo code has expired"
	case errors.Is(err, ErrNotStarted):
		return "This promo code is not active yet"
	case errors.Is(err, ErrWrongMerchant):
		return "This code is not valid for this restaurant"
	case errors.Is(err, ErrUsageLimitReached):
		return "This promo code has reached its usage limit"
	case errors.Is(err, ErrPerUserLimitReached):
		return "You have already used this promo code"
	default:
		return "Unable to validate promo code"
	}
}
