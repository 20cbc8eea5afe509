package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v79"

	"github.com/kcasko/savepointapparel/internal/email"
	"github.com/kcasko/savepointapparel/internal/models"
	"github.com/kcasko/savepointapparel/internal/store"
)

type paymentGateway interface {
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
	RetrieveSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type fulfillmentSubmitter interface {
	Submit(ctx context.Context, order *models.Order) (string, error)
}

type confirmationSender interface {
	SendConfirmation(order *models.Order) error
}

type orderStore interface {
	CreateOrder(order *models.Order) error
	GetOrderBySessionID(sessionID string) (*models.Order, error)
	SetFulfillmentID(sessionID, printfulOrderID string) error
}

// WebhookHandler processes Stripe callbacks. Delivery is at-least-once and
// possibly concurrent; the order store's unique session index plus the
// existing-order check make completion handling idempotent.
type WebhookHandler struct {
	Payments    paymentGateway
	Fulfillment fulfillmentSubmitter
	Mailer      confirmationSender
	Store       orderStore
}

// HandleStripeEvent handles POST /webhooks/stripe. A bad signature is a hard
// 400; a failure before the order record is durable returns 500 so Stripe
// redelivers; everything downstream of a durable order is isolated and only
// logged.
func (h *WebhookHandler) HandleStripeEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := h.Payments.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		slog.Error("Webhook signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	slog.Info("Webhook received", "type", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			slog.Error("Failed to decode checkout session payload", "error", err)
			writeError(w, http.StatusBadRequest, "Malformed event payload")
			return
		}
		if err := h.handleCompletedSession(r.Context(), session.ID); err != nil {
			slog.Error("Failed to process completed session", "session_id", session.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to process event")
			return
		}

	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err == nil {
			slog.Info("Checkout session expired", "session_id", session.ID)
		}

	case "payment_intent.succeeded":
		slog.Info("Payment intent succeeded")

	case "payment_intent.payment_failed":
		slog.Warn("Payment intent failed")

	default:
		slog.Debug("Unhandled webhook event type", "type", event.Type)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleCompletedSession creates the order and kicks off fulfillment and the
// confirmation email. Sessions still missing the customer email or shipping
// address are not yet actionable: Stripe redelivers the event once the
// details are collected, so returning nil (and acking) is the retry.
func (h *WebhookHandler) handleCompletedSession(ctx context.Context, sessionID string) error {
	if existing, err := h.Store.GetOrderBySessionID(sessionID); err == nil {
		slog.Info("Duplicate completion event for already-processed session",
			"session_id", sessionID, "order_id", existing.ID)
		return nil
	} else if !errors.Is(err, store.ErrOrderNotFound) {
		return fmt.Errorf("look up existing order: %w", err)
	}

	session, err := h.Payments.RetrieveSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("retrieve session: %w", err)
	}

	if session.CustomerDetails == nil || session.CustomerDetails.Email == "" {
		slog.Warn("No customer email yet, waiting for session completion", "session_id", sessionID)
		return nil
	}
	shipping := session.ShippingDetails
	if shipping == nil || shipping.Address == nil {
		slog.Warn("Shipping address not yet collected", "session_id", sessionID)
		return nil
	}
	if session.LineItems == nil || len(session.LineItems.Data) == 0 {
		return fmt.Errorf("no line items found in session %s", sessionID)
	}

	order := buildOrder(session)

	if err := h.Store.CreateOrder(order); err != nil {
		if errors.Is(err, store.ErrDuplicateOrder) {
			slog.Info("Order already created by a concurrent delivery", "session_id", sessionID)
			return nil
		}
		return fmt.Errorf("create order: %w", err)
	}
	slog.Info("Order created", "order_id", order.ID, "session_id", sessionID)

	// Fulfillment failure leaves the order without a Printful id for
	// manual reconciliation; it never unwinds the payment.
	printfulID, err := h.Fulfillment.Submit(ctx, order)
	if err != nil {
		slog.Error("Printful order submission failed, manual follow-up required",
			"order_id", order.ID, "error", err)
	} else if printfulID != "" {
		order.PrintfulOrderID = printfulID
		if err := h.Store.SetFulfillmentID(order.StripeSessionID, printfulID); err != nil {
			slog.Error("Failed to record Printful order id", "order_id", order.ID, "error", err)
		}
	}

	if err := h.Mailer.SendConfirmation(order); err != nil {
		if errors.Is(err, email.ErrNotConfigured) {
			slog.Info("Email transport not configured, skipping confirmation", "order_id", order.ID)
		} else {
			slog.Error("Failed to send confirmation email", "order_id", order.ID, "error", err)
		}
	}

	return nil
}

func buildOrder(session *stripe.CheckoutSession) *models.Order {
	customer := session.CustomerDetails
	shipping := session.ShippingDetails

	name := customer.Name
	if name == "" {
		name = shipping.Name
	}
	if name == "" {
		name = "Customer"
	}

	items := make([]models.OrderItem, 0, len(session.LineItems.Data))
	for _, li := range session.LineItems.Data {
		item := models.OrderItem{
			ProductName: li.Description,
			Quantity:    int(li.Quantity),
		}
		if li.Price != nil {
			item.Price = float64(li.Price.UnitAmount) / 100
			if li.Price.Product != nil {
				item.ProductID = li.Price.Product.Metadata["product_id"]
				if raw := li.Price.Product.Metadata["sync_variant_id"]; raw != "" {
					if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
						item.SyncVariantID = id
					}
				}
			}
		}
		items = append(items, item)
	}

	addr := shipping.Address
	return &models.Order{
		StripeSessionID: session.ID,
		CustomerEmail:   customer.Email,
		CustomerName:    name,
		CustomerPhone:   customer.Phone,
		TotalAmount:     float64(session.AmountTotal) / 100,
		Currency:        string(session.Currency),
		PaymentStatus:   string(session.PaymentStatus),
		Status:          models.OrderStatusPending,
		Items:           items,
		ShippingAddress: models.ShippingAddress{
			Name:        shipping.Name,
			Address1:    addr.Line1,
			Address2:    addr.Line2,
			City:        addr.City,
			StateCode:   addr.State,
			CountryCode: addr.Country,
			Zip:         addr.PostalCode,
			Phone:       customer.Phone,
		},
	}
}
