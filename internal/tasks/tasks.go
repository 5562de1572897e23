package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/feastly/backend-feastly/internal/pricing"
)

// Task type identifiers shared by the API enqueuer and the worker.
const (
	TypePromoSettle = "promo:settle"
	TypeOrderEmail  = "order:confirmation_email"
)

// PromoSettlePayload records a redemption awaiting settlement. Settlement is
// idempotent on (PromoCodeID, OrderID) so asynq retries are harmless.
type PromoSettlePayload struct {
	PromoCodeID uuid.UUID     `json:"promoCodeId"`
	OrderID     uuid.UUID     `json:"orderId"`
	UserID      string        `json:"userId"`
	Amount      pricing.Money `json:"amount"`
}

// NewPromoSettleTask builds the settlement task for an order's promotion.
func NewPromoSettleTask(p PromoSettlePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal promo settle payload: %w", err)
	}
	return asynq.NewTask(TypePromoSettle, payload, asynq.MaxRetry(5)), nil
}

// OrderEmailPayload carries everything the confirmation email needs so the
// worker does not have to read the order back.
type OrderEmailPayload struct {
	OrderID      uuid.UUID     `json:"orderId"`
	UserID       string        `json:"userId"`
	MerchantName string        `json:"merchantName"`
	Total        pricing.Money `json:"total"`
}

// NewOrderEmailTask builds the confirmation email task for a submitted order.
func NewOrderEmailTask(p OrderEmailPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal order email payload: %w", err)
	}
	return asynq.NewTask(TypeOrderEmail, payload, asynq.MaxRetry(3)), nil
}
