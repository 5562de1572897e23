package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/feastly/backend-feastly/internal/cart"
	"github.com/feastly/backend-feastly/internal/delivery"
	"github.com/feastly/backend-feastly/internal/merchant"
	"github.com/feastly/backend-feastly/internal/obs"
	"github.com/feastly/backend-feastly/internal/order"
	"github.com/feastly/backend-feastly/internal/pricing"
	"github.com/feastly/backend-feastly/internal/promo"
	"github.com/feastly/backend-feastly/internal/tasks"
)

// ErrEmptyCart is returned when the user has nothing to price.
var ErrEmptyCart = errors.New("cart is empty")

// MerchantStore resolves the cart's merchant.
type MerchantStore interface {
	GetByID(ctx context.Context, id string) (merchant.Merchant, error)
}

// PromoValidator runs the ordered eligibility pipeline.
type PromoValidator interface {
	Validate(ctx context.Context, code string, subtotal pricing.Money, userID, merchantID string) (promo.Rule, error)
}

// DistanceResolver resolves a merchant-to-drop distance; it never fails.
type DistanceResolver interface {
	Resolve(ctx context.Context, origin, dest delivery.Point) delivery.Distance
}

// PolicyProvider serves the delivery fee policy in force.
type PolicyProvider interface {
	Current() delivery.Policy
}

// OrderStore persists submitted orders.
type OrderStore interface {
	Insert(ctx context.Context, o *order.Order) error
}

// TaskEnqueuer hands post-order work to the background queue.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Geocoder labels a drop point for order display; best-effort only.
type Geocoder interface {
	Locality(ctx context.Context, p delivery.Point) (string, error)
}

// Service prices carts and turns accepted quotes into orders.
type Service struct {
	Carts     *cart.Store
	Merchants MerchantStore
	Promos    PromoValidator
	Resolver  DistanceResolver
	Policy    PolicyProvider
	Orders    OrderStore
	Tasks     TaskEnqueuer
	Geocoder  Geocoder
	Logger    zerolog.Logger
	Now       func() time.Time
}

// QuoteInput identifies the drop point and the optional promo code.
type QuoteInput struct {
	DropLat   float64 `json:"dropLat" validate:"required,latitude"`
	DropLng   float64 `json:"dropLng" validate:"required,longitude"`
	PromoCode string  `json:"promoCode,omitempty"`
}

// QuotedItem is one priced cart line in a result.
type QuotedItem struct {
	ProductID      string        `json:"productId"`
	Name           string        `json:"name"`
	UnitPrice      pricing.Money `json:"unitPrice"`
	EffectivePrice pricing.Money `json:"effectivePrice"`
	Qty            int           `json:"quantity"`
	DiscountBps    int32         `json:"discountBps,omitempty"`
	LineTotal      pricing.Money `json:"lineTotal"`
}

// Savings summarises what the customer did not pay.
type Savings struct {
	ItemSavings  pricing.Money `json:"itemSavings"`
	PromoSavings pricing.Money `json:"promoSavings"`
	Total        pricing.Money `json:"total"`
}

// PricingResult is a complete, self-describing quote. Submitted orders embed
// it verbatim so the charged breakdown stays auditable.
type PricingResult struct {
	MerchantID        string                `json:"merchantId"`
	MerchantName      string                `json:"merchantName"`
	Items             []QuotedItem          `json:"items"`
	FreeItems         []promo.FreeItemGrant `json:"freeItems,omitempty"`
	Summary           pricing.Summary       `json:"summary"`
	PromoCode         string                `json:"promoCode,omitempty"`
	PromoCodeID       *uuid.UUID            `json:"-"`
	PromoNote         string                `json:"promoNote,omitempty"`
	DiscountBreakdown string                `json:"discountBreakdown,omitempty"`
	FeeBreakdown      string                `json:"feeBreakdown"`
	DistanceKm        float64               `json:"distanceKm"`
	DistanceSource    string                `json:"distanceSource"`
	Savings           Savings               `json:"savings"`
}

// Quote prices the user's live cart against the drop point. Nothing is cached
// between calls: the promo is re-validated against the current subtotal every
// time. Promo rejections come back as typed errors satisfying
// promo.IsRejection, never as internal failures.
func (s *Service) Quote(ctx context.Context, userID string, in QuoteInput) (PricingResult, error) {
	snap := s.Carts.Snapshot(ctx, userID)
	if snap == nil {
		s.countQuote("empty_cart")
		return PricingResult{}, ErrEmptyCart
	}
	m, err := s.Merchants.GetByID(ctx, snap.MerchantID)
	if err != nil {
		s.countQuote("error")
		return PricingResult{}, err
	}

	dist := s.Resolver.Resolve(ctx, m.Location, delivery.Point{Lat: in.DropLat, Lng: in.DropLng})
	fee, feeBreakdown := delivery.QuoteFee(dist.Km, s.Policy.Current())

	res := PricingResult{
		MerchantID:     snap.MerchantID,
		MerchantName:   snap.MerchantName,
		Items:          quotedItems(snap.Lines),
		FeeBreakdown:   feeBreakdown,
		DistanceKm:     dist.Km,
		DistanceSource: dist.Source,
	}

	var promoDiscount pricing.Money
	if in.PromoCode != "" {
		rule, err := s.Promos.Validate(ctx, in.PromoCode, snap.Subtotal, userID, snap.MerchantID)
		if err != nil {
			if promo.IsRejection(err) {
				s.countQuote("promo_rejected")
			} else {
				s.countQuote("error")
			}
			return PricingResult{}, err
		}
		app := promo.Apply(rule, snap.Subtotal, snap.Lines)
		promoDiscount = app.Discount
		res.PromoCode = rule.Code
		id := rule.ID
		res.PromoCodeID = &id
		res.FreeItems = app.FreeItems
		res.PromoNote = app.Note
		res.DiscountBreakdown = discountBreakdown(rule, app)
	}

	res.Summary = pricing.Compute(pricing.Input{
		Subtotal:          snap.Subtotal,
		ItemDiscountTotal: snap.ItemDiscountTotal,
		PromoDiscount:     promoDiscount,
		DeliveryFee:       fee,
		TaxBps:            m.TaxBps(),
	})
	res.Savings = Savings{
		ItemSavings:  res.Summary.ItemDiscountTotal,
		PromoSavings: res.Summary.PromoDiscount,
		Total:        res.Summary.ItemDiscountTotal + res.Summary.PromoDiscount,
	}
	s.countQuote("ok")
	return res, nil
}

// SubmitInput mirrors QuoteInput; the submitted order always re-prices the
// live cart rather than trusting a quote the client may have cached.
type SubmitInput = QuoteInput

// Submit turns the current cart into a persisted order, clears the cart, and
// queues settlement plus the confirmation email. A failed insert surfaces to
// the client for retry; no promo usage is ever recorded without its order.
func (s *Service) Submit(ctx context.Context, userID string, in SubmitInput) (order.Order, error) {
	res, err := s.Quote(ctx, userID, in)
	if err != nil {
		return order.Order{}, err
	}

	snapshot, err := json.Marshal(res)
	if err != nil {
		return order.Order{}, fmt.Errorf("marshal pricing snapshot: %w", err)
	}

	o := order.Order{
		ID:           uuid.New(),
		UserID:       userID,
		MerchantID:   res.MerchantID,
		MerchantName: res.MerchantName,
		PromoCodeID:  res.PromoCodeID,
		PromoCode:    res.PromoCode,
		Status:       "confirmed",
		Total:        res.Summary.Total,
		Pricing:      snapshot,
		DropLat:      in.DropLat,
		DropLng:      in.DropLng,
		Items:        orderItems(res),
		CreatedAt:    s.now(),
	}
	if s.Geocoder != nil {
		if locality, err := s.Geocoder.Locality(ctx, delivery.Point{Lat: in.DropLat, Lng: in.DropLng}); err == nil {
			o.DropLocality = locality
		}
	}

	if err := s.Orders.Insert(ctx, &o); err != nil {
		return order.Order{}, err
	}
	s.Carts.Clear(ctx, userID)
	s.enqueuePostOrder(o, res)
	if obs.OrdersSubmitted != nil {
		obs.OrdersSubmitted.Inc()
	}
	return o, nil
}

func (s *Service) enqueuePostOrder(o order.Order, res PricingResult) {
	if s.Tasks == nil {
		return
	}
	if res.PromoCodeID != nil {
		task, err := tasks.NewPromoSettleTask(tasks.PromoSettlePayload{
			PromoCodeID: *res.PromoCodeID,
			OrderID:     o.ID,
			UserID:      o.UserID,
			Amount:      res.Summary.PromoDiscount,
		})
		if err == nil {
			_, err = s.Tasks.Enqueue(task)
		}
		if err != nil {
			s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("enqueue promo settlement")
		}
	}
	task, err := tasks.NewOrderEmailTask(tasks.OrderEmailPayload{
		OrderID:      o.ID,
		UserID:       o.UserID,
		MerchantName: o.MerchantName,
		Total:        o.Total,
	})
	if err == nil {
		_, err = s.Tasks.Enqueue(task)
	}
	if err != nil {
		s.Logger.Warn().Err(err).Str("order_id", o.ID.String()).Msg("enqueue confirmation email")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) countQuote(outcome string) {
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.WithLabelValues(outcome).Inc()
	}
}

func quotedItems(lines []cart.Line) []QuotedItem {
	items := make([]QuotedItem, 0, len(lines))
	for _, ln := range lines {
		effective := pricing.EffectivePrice(ln.UnitPrice, ln.DiscountBps)
		items = append(items, QuotedItem{
			ProductID:      ln.ID,
			Name:           ln.Name,
			UnitPrice:      ln.UnitPrice,
			EffectivePrice: effective,
			Qty:            ln.Qty,
			DiscountBps:    ln.DiscountBps,
			LineTotal:      effective * pricing.Money(ln.Qty),
		})
	}
	return items
}

func orderItems(res PricingResult) []order.Item {
	items := make([]order.Item, 0, len(res.Items)+len(res.FreeItems))
	for _, it := range res.Items {
		items = append(items, order.Item{
			ProductID:   it.ProductID,
			Name:        it.Name,
			UnitPrice:   it.UnitPrice,
			Qty:         it.Qty,
			DiscountBps: it.DiscountBps,
		})
	}
	for _, grant := range res.FreeItems {
		items = append(items, order.Item{
			ProductID:       grant.ProductID,
			Name:            grant.Name,
			UnitPrice:       grant.UnitPrice,
			Qty:             grant.Qty,
			IsFree:          true,
			SourcePromoCode: grant.SourceCode,
		})
	}
	return items
}

func discountBreakdown(rule promo.Rule, app promo.Application) string {
	switch {
	case rule.Deal == promo.DealBxGy:
		units := 0
		for _, g := range app.FreeItems {
			units += g.Qty
		}
		if units == 0 {
			return ""
		}
		return fmt.Sprintf("%s: %d free item(s) worth %s", rule.Code, units, pricing.FormatMoney(app.Discount))
	case rule.Kind == promo.KindPercent:
		return fmt.Sprintf("%s: %d%% off, −%s", rule.Code, rule.PercentBps/100, pricing.FormatMoney(app.Discount))
	default:
		return fmt.Sprintf("%s: −%s", rule.Code, pricing.FormatMoney(app.Discount))
	}
}
