package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/feastly/backend-feastly/internal/cart"
	"github.com/feastly/backend-feastly/internal/common"
	"github.com/feastly/backend-feastly/internal/merchant"
	"github.com/feastly/backend-feastly/internal/promo"
)

// Handler serves quoting and order submission.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Quote prices the current cart without side effects.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.Svc.Quote(r.Context(), userID, in)
	if err != nil {
		h.renderQuoteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// Submit turns the current cart into an order.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	o, err := h.Svc.Submit(r.Context(), userID, in)
	if err != nil {
		h.renderQuoteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (QuoteInput, bool) {
	var in QuoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return in, false
	}
	if err := h.Validate.Struct(in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "dropLat and dropLng are required", nil)
		return in, false
	}
	return in, true
}

func (h *Handler) renderQuoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusNotFound, "EMPTY_CART", "add items to your cart first", nil)
	case errors.Is(err, merchant.ErrNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "MERCHANT_UNAVAILABLE", "this restaurant is currently unavailable", nil)
	case errors.Is(err, cart.ErrDifferentMerchant):
		common.JSONError(w, http.StatusConflict, "DIFFERENT_MERCHANT", "cart belongs to another restaurant", nil)
	case promo.IsRejection(err):
		common.JSONError(w, http.StatusUnprocessableEntity, "PROMO_REJECTED", promo.UserMessage(err),
			map[string]any{"reason": promo.RejectionReason(err)})
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to price the order", nil)
	}
}
