package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/feastly/backend-feastly/internal/common"
	"github.com/feastly/backend-feastly/internal/pricing"
)

// Handler wires the cart store to HTTP.
type Handler struct {
	Store    *Store
	Validate *validator.Validate
}

type addItemRequest struct {
	ID           string        `json:"id" validate:"required"`
	Name         string        `json:"name" validate:"required"`
	UnitPrice    pricing.Money `json:"unitPrice" validate:"gte=0"`
	Quantity     int           `json:"quantity" validate:"gte=1"`
	DiscountBps  int32         `json:"discountBps" validate:"gte=0,lte=10000"`
	MerchantID   string        `json:"merchantId" validate:"required"`
	MerchantName string        `json:"merchantName" validate:"required"`
}

// Get returns the cart snapshot, or a null payload when the user has no cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	snap := h.Store.Snapshot(r.Context(), userID)
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// AddItem merges a line into the cart. Adding across merchants is a
// confirmable precondition: the client gets a 409 carrying the currently
// bound merchant and must clear before retrying.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	var payload addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid item payload", err.Error())
		return
	}
	ln := Line{
		ID:          payload.ID,
		Name:        payload.Name,
		UnitPrice:   payload.UnitPrice,
		Qty:         payload.Quantity,
		DiscountBps: payload.DiscountBps,
	}
	err := h.Store.Add(r.Context(), userID, ln, payload.MerchantID, payload.MerchantName)
	if err != nil {
		if errors.Is(err, ErrDifferentMerchant) {
			current := h.Store.Snapshot(r.Context(), userID)
			details := map[string]any{}
			if current != nil {
				details["currentMerchantId"] = current.MerchantID
				details["currentMerchantName"] = current.MerchantName
			}
			common.JSONError(w, http.StatusConflict, "DIFFERENT_MERCHANT",
				"cart holds items from another merchant; clear it before adding", details)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Store.Snapshot(r.Context(), userID)})
}

// UpdateItem sets a line quantity; zero removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	id := chi.URLParam(r, "id")
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	h.Store.UpdateQuantity(r.Context(), userID, id, payload.Quantity)
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Store.Snapshot(r.Context(), userID)})
}

// RemoveItem deletes a line from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	h.Store.Remove(r.Context(), userID, chi.URLParam(r, "id"))
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Store.Snapshot(r.Context(), userID)})
}

// Clear discards the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	h.Store.Clear(r.Context(), userID)
	common.JSON(w, http.StatusOK, map[string]any{"data": nil})
}
