package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kcasko/savepointapparel/internal/models"
	"github.com/kcasko/savepointapparel/internal/payments"
)

type cartReconciler interface {
	Reconcile(ctx context.Context, items []models.CartItem) ([]models.CartItem, []string)
}

type sessionCreator interface {
	CreateSession(ctx context.Context, data payments.SessionData) (*payments.SessionResult, error)
}

type CheckoutHandler struct {
	Pricing  cartReconciler
	Payments sessionCreator
	SiteURL  string
}

type checkoutRequest struct {
	Items        []models.CartItem   `json:"items"`
	CustomerInfo models.CustomerInfo `json:"customerInfo"`
}

// CreateSession handles POST /api/checkout: reconcile the cart against
// catalog prices, then create an embedded checkout session and hand the
// client secret back to the payment UI.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "No items provided for checkout")
		return
	}

	validated, errs := h.Pricing.Reconcile(r.Context(), req.Items)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Invalid cart",
			"errors": errs,
		})
		return
	}

	// Session creation preconditions; reconciliation never produces
	// negative prices, but the pass-through path can carry anything the
	// client sent.
	for _, item := range validated {
		if strings.TrimSpace(item.Name) == "" || item.Price < 0 || item.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "Invalid cart item")
			return
		}
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = h.SiteURL
	}

	result, err := h.Payments.CreateSession(r.Context(), payments.SessionData{
		Items:        validated,
		CustomerInfo: req.CustomerInfo,
		ReturnURL:    origin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		Metadata: map[string]string{
			"source":     "website",
			"item_count": strconv.Itoa(len(validated)),
		},
	})
	if err != nil {
		slog.Error("Checkout session creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"clientSecret": result.ClientSecret,
	})
}
