package models

import (
	"time"
)

// Product is the normalized shape of a Printful sync product.
// Prices are retail prices in USD; Variants is ordered as returned upstream.
type Product struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"external_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Variants    []Variant `json:"variants"`
}

type Variant struct {
	ID        int64   `json:"id"` // Printful sync variant id
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
	SKU       string  `json:"sku"`
}

// CartItem is a client-submitted line item. Name and Price are untrusted
// until reconciled against the catalog.
type CartItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	Image         string  `json:"image,omitempty"`
	SyncVariantID int64   `json:"sync_variant_id,omitempty"`
}

type CustomerInfo struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Order status values. PENDING until fulfillment submission succeeds.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusRefunded   = "REFUNDED"
)

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// Order is the persisted record created on the first successful-payment
// webhook for a Stripe session. StripeSessionID is unique at the storage
// layer; PrintfulOrderID stays empty until fulfillment submission succeeds.
type Order struct {
	ID              string          `json:"id"`
	StripeSessionID string          `json:"stripe_session_id"`
	PrintfulOrderID string          `json:"printful_order_id,omitempty"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	TotalAmount     float64         `json:"total_amount"`
	Currency        string          `json:"currency"`
	PaymentStatus   string          `json:"payment_status"`
	Status          string          `json:"status"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID            int     `json:"id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	SyncVariantID int64   `json:"sync_variant_id,omitempty"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
}

type ShippingAddress struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone,omitempty"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"` // bcrypt hash
}
