package payments

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/kcasko/savepointapparel/internal/models"
)

// Client wraps the Stripe SDK for embedded checkout sessions and webhook
// event verification.
type Client struct {
	webhookSecret string
}

func NewClient(secretKey, webhookSecret string) *Client {
	stripe.Key = secretKey
	return &Client{webhookSecret: webhookSecret}
}

// SessionData is everything needed to build one checkout session. Items must
// already be reconciled; this layer does no price validation.
type SessionData struct {
	Items        []models.CartItem
	CustomerInfo models.CustomerInfo
	ReturnURL    string
	Metadata     map[string]string
}

type SessionResult struct {
	SessionID    string
	ClientSecret string
}

// CreateSession creates an embedded-mode checkout session and returns the
// client secret for the front end's payment UI. Stripe persists nothing when
// the call fails, so there is no partial state to clean up.
func (c *Client) CreateSession(ctx context.Context, data SessionData) (*SessionResult, error) {
	params := buildSessionParams(data)
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &SessionResult{SessionID: s.ID, ClientSecret: s.ClientSecret}, nil
}

// RetrieveSession fetches a session with line items (including product
// metadata), customer, and payment intent expanded.
func (c *Client) RetrieveSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")
	params.AddExpand("customer")
	params.AddExpand("payment_intent")
	return session.Get(id, params)
}

// ConstructEvent verifies the Stripe-Signature header against the shared
// webhook secret and decodes the event payload.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
}

func buildSessionParams(data SessionData) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(data.Items))
	for _, item := range data.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
			Metadata: map[string]string{
				"product_id":      item.ID,
				"sync_variant_id": formatVariantID(item.SyncVariantID),
			},
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				ProductData: productData,
				UnitAmount:  stripe.Int64(ToMinorUnits(item.Price)),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	metadata := map[string]string{"order_source": "website"}
	for k, v := range data.Metadata {
		metadata[k] = v
	}

	params := &stripe.CheckoutSessionParams{
		UIMode:             stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		ReturnURL:          stripe.String(data.ReturnURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"US", "CA", "GB", "AU"}),
		},
		// Printful requires a recipient phone number for shipping.
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		AutomaticTax: &stripe.CheckoutSessionAutomaticTaxParams{
			Enabled: stripe.Bool(true),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			shippingOption("Free shipping", 0, 5, 7),
			shippingOption("Express shipping", 999, 2, 3),
		},
		Metadata: metadata,
	}
	if data.CustomerInfo.Email != "" {
		params.CustomerEmail = stripe.String(data.CustomerInfo.Email)
	}
	return params
}

func shippingOption(name string, amount, minDays, maxDays int64) *stripe.CheckoutSessionShippingOptionParams {
	return &stripe.CheckoutSessionShippingOptionParams{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type: stripe.String("fixed_amount"),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(amount),
				Currency: stripe.String(string(stripe.CurrencyUSD)),
			},
			DisplayName: stripe.String(name),
			DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
				Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(minDays),
				},
				Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(maxDays),
				},
			},
		},
	}
}

// ToMinorUnits converts a decimal USD amount to integer cents.
func ToMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func formatVariantID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
