package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/feastly/backend-feastly/internal/common"
	"github.com/feastly/backend-feastly/internal/promo"
)

type recordingPromoStore struct {
	promo.Store
	recorded   map[string]bool
	increments int
}

func (r *recordingPromoStore) RecordUsage(_ context.Context, promoID, orderID uuid.UUID, _ string, _ int64) (bool, error) {
	key := promoID.String() + "|" + orderID.String()
	if r.recorded[key] {
		return false, nil
	}
	r.recorded[key] = true
	return true, nil
}

func (r *recordingPromoStore) IncrementUsedCount(context.Context, uuid.UUID) error {
	r.increments++
	return nil
}

func TestHandlePromoSettleIdempotentAcrossRetries(t *testing.T) {
	store := &recordingPromoStore{recorded: map[string]bool{}}
	h := &Handlers{
		Promos: &promo.Service{Store: store, Now: time.Now},
		Email:  common.NopEmailSender{},
		Logger: zerolog.Nop(),
	}

	task, err := NewPromoSettleTask(PromoSettlePayload{
		PromoCodeID: uuid.New(), OrderID: uuid.New(), UserID: "u1", Amount: 5_000,
	})
	require.NoError(t, err)
	require.Equal(t, TypePromoSettle, task.Type())

	require.NoError(t, h.HandlePromoSettle(context.Background(), task))
	require.NoError(t, h.HandlePromoSettle(context.Background(), task))
	require.Equal(t, 1, store.increments)
}

func TestHandleOrderEmail(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	h := &Handlers{Email: outbox, Logger: zerolog.Nop()}

	task, err := NewOrderEmailTask(OrderEmailPayload{
		OrderID: uuid.New(), UserID: "u1", MerchantName: "Punjabi Rasoi", Total: 64_500,
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleOrderEmail(context.Background(), task))
	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "u1", outbox.Outbox[0].To)
	require.Contains(t, outbox.Outbox[0].Subject, "Punjabi Rasoi")
	require.Contains(t, outbox.Outbox[0].HTML, "₹645.00")
}

func TestHandlePromoSettleRejectsCorruptPayload(t *testing.T) {
	h := &Handlers{Logger: zerolog.Nop()}
	err := h.HandlePromoSettle(context.Background(), asynq.NewTask(TypePromoSettle, []byte("{not json")))
	require.Error(t, err)
}
