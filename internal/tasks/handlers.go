package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/feastly/backend-feastly/internal/common"
	"github.com/feastly/backend-feastly/internal/pricing"
	"github.com/feastly/backend-feastly/internal/promo"
)

// Handlers processes the post-order background work.
type Handlers struct {
	Promos *promo.Service
	Email  common.EmailSender
	Logger zerolog.Logger
}

// Register attaches all task handlers to the worker mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePromoSettle, h.HandlePromoSettle)
	mux.HandleFunc(TypeOrderEmail, h.HandleOrderEmail)
}

// HandlePromoSettle records a promo redemption after its order landed.
func (h *Handlers) HandlePromoSettle(ctx context.Context, t *asynq.Task) error {
	var p PromoSettlePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal promo settle payload: %w", err)
	}
	if err := h.Promos.Settle(ctx, p.PromoCodeID, p.OrderID, p.UserID, p.Amount); err != nil {
		h.Logger.Error().Err(err).
			Str("promo_code_id", p.PromoCodeID.String()).
			Str("order_id", p.OrderID.String()).
			Msg("promo settlement failed")
		return err
	}
	h.Logger.Info().
		Str("promo_code_id", p.PromoCodeID.String()).
		Str("order_id", p.OrderID.String()).
		Msg("promo settled")
	return nil
}

// HandleOrderEmail sends the order confirmation.
func (h *Handlers) HandleOrderEmail(ctx context.Context, t *asynq.Task) error {
	var p OrderEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal order email payload: %w", err)
	}
	subject := fmt.Sprintf("Your order from %s is confirmed", p.MerchantName)
	html := fmt.Sprintf("<p>Order <b>%s</b> is confirmed. Amount charged: %s.</p>",
		p.OrderID, pricing.FormatMoney(p.Total))
	if err := h.Email.Send(p.UserID, subject, html); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}
