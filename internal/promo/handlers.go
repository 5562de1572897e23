package promo

import (
	"encoding/json"
	"net/http"

	"github.com/feastly/backend-feastly/internal/cart"
	"github.com/feastly/backend-feastly/internal/common"
)

// Handler exposes promotion listing and validation over HTTP.
type Handler struct {
	Svc   *Service
	Carts *cart.Store
}

type validateRequest struct {
	Code string `json:"code"`
}

type ruleView struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Scope       Scope  `json:"scope"`
	Kind        Kind   `json:"discountType"`
	Deal        Deal   `json:"dealType"`
	Terms       *Terms `json:"dealTerms,omitempty"`
	AutoApply   bool   `json:"autoApply"`
	Priority    int32  `json:"priority"`
}

func viewOf(r Rule) ruleView {
	return ruleView{
		Code:        r.Code,
		Description: r.Description,
		Scope:       r.Scope,
		Kind:        r.Kind,
		Deal:        r.Deal,
		Terms:       r.Terms,
		AutoApply:   r.AutoApply,
		Priority:    r.Priority,
	}
}

// List returns promotions the storefront may surface for a merchant.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	merchantID := r.URL.Query().Get("merchantId")
	rules, err := h.Svc.ListActive(r.Context(), merchantID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load promotions", nil)
		return
	}
	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, viewOf(rule))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// ValidateCode checks a candidate code against the caller's current cart.
// Rejections are ordinary 422 responses carrying the first blocking reason;
// the validation itself always runs against the live cart subtotal.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	var payload validateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	snap := h.Carts.Snapshot(r.Context(), userID)
	if snap == nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "add items to your cart first", nil)
		return
	}
	rule, err := h.Svc.Validate(r.Context(), payload.Code, snap.Subtotal, userID, snap.MerchantID)
	if err != nil {
		if IsRejection(err) {
			common.JSON(w, http.StatusUnprocessableEntity, map[string]any{
				"data": map[string]any{
					"valid":   false,
					"reason":  RejectionReason(err),
					"message": UserMessage(err),
				},
			})
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to validate promo code", nil)
		return
	}
	app := Apply(rule, snap.Subtotal, snap.Lines)
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"valid":     true,
			"promo":     viewOf(rule),
			"discount":  app.Discount,
			"freeItems": app.FreeItems,
			"note":      app.Note,
		},
	})
}
