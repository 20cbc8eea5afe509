package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kcasko/savepointapparel/internal/models"
	"github.com/kcasko/savepointapparel/internal/printful"
)

// Submitter translates a paid order into a Printful fulfillment order.
// Submission failures never roll back the payment or the order record; the
// order is simply left without a provider order id for manual follow-up.
type Submitter struct {
	Printful *printful.Client
}

func NewSubmitter(client *printful.Client) *Submitter {
	return &Submitter{Printful: client}
}

// Submit maps the order onto Printful's order shape and creates it upstream.
// Items without a valid sync variant id are dropped with a warning; when
// every item is dropped no API call is made and an empty id is returned so
// the order stays visibly unfulfilled.
func (s *Submitter) Submit(ctx context.Context, order *models.Order) (string, error) {
	items := make([]printful.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.SyncVariantID <= 0 {
			slog.Warn("Skipping fulfillment item without sync variant id",
				"order_id", order.ID, "product", item.ProductName)
			continue
		}
		price := formatAmount(item.Price)
		items = append(items, printful.OrderItem{
			SyncVariantID: item.SyncVariantID,
			Quantity:      item.Quantity,
			Price:         price,
			RetailPrice:   price,
		})
	}

	if len(items) == 0 {
		slog.Warn("No fulfillable items in order, skipping Printful submission", "order_id", order.ID)
		return "", nil
	}

	addr := order.ShippingAddress
	total := formatAmount(order.TotalAmount)
	pfOrder := &printful.Order{
		ExternalID: order.StripeSessionID,
		Shipping:   "STANDARD",
		Recipient: printful.Recipient{
			Name:     addr.Name,
			Address1: addr.Address1,
			Address2: addr.Address2,
			City:     addr.City,
			// Printful accepts codes in the name fields; it resolves
			// proper names itself.
			StateCode:   addr.StateCode,
			StateName:   addr.StateCode,
			CountryCode: addr.CountryCode,
			CountryName: addr.CountryCode,
			Zip:         addr.Zip,
			Phone:       addr.Phone,
			Email:       order.CustomerEmail,
		},
		Items: items,
		RetailCosts: printful.RetailCosts{
			Currency: currencyOf(order),
			Subtotal: total,
			Discount: "0.00",
			// Shipping and tax are recalculated by Printful; zero
			// placeholders satisfy the request schema.
			Shipping: "0.00",
			Tax:      "0.00",
			VAT:      "0.00",
			Total:    total,
		},
	}

	result, err := s.Printful.CreateOrder(ctx, pfOrder)
	if err != nil {
		return "", fmt.Errorf("submit printful order: %w", err)
	}

	slog.Info("Printful order created", "order_id", order.ID, "printful_order_id", result.ID)
	return strconv.FormatInt(result.ID, 10), nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func currencyOf(order *models.Order) string {
	if order.Currency == "" {
		return "USD"
	}
	return strings.ToUpper(order.Currency)
}
