package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.printful.com"

// Client talks to the Printful REST API. All endpoints are bearer-token
// authenticated and optionally scoped by a store id query parameter.
type Client struct {
	baseURL    string
	token      string
	storeID    string
	httpClient *http.Client
}

func NewClient(token, storeID string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		storeID: storeID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake server.
func NewClientWithBaseURL(token, storeID, baseURL string) *Client {
	c := NewClient(token, storeID)
	c.baseURL = baseURL
	return c
}

// Configured reports whether an API token is present. Callers use this to
// decide between live catalog data and degraded-mode fallbacks.
func (c *Client) Configured() bool {
	return c.token != ""
}

// envelope is Printful's standard response wrapper.
type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
}

// SyncProductSummary is one entry of the synced-products listing. The list
// endpoint does not include variants; fetch the detail for those.
type SyncProductSummary struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	Name         string `json:"name"`
	Variants     int    `json:"variants"`
	Synced       int    `json:"synced"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsIgnored    bool   `json:"is_ignored"`
}

type SyncProductDetail struct {
	SyncProduct  SyncProductSummary `json:"sync_product"`
	SyncVariants []SyncVariant      `json:"sync_variants"`
}

type SyncVariant struct {
	ID          int64         `json:"id"`
	ExternalID  string        `json:"external_id"`
	Name        string        `json:"name"`
	Synced      bool          `json:"synced"`
	VariantID   int64         `json:"variant_id"`
	RetailPrice string        `json:"retail_price"`
	SKU         string        `json:"sku"`
	Product     VariantDetail `json:"product"`
	Files       []File        `json:"files"`
}

type VariantDetail struct {
	VariantID int64  `json:"variant_id"`
	ProductID int64  `json:"product_id"`
	Image     string `json:"image"`
	Name      string `json:"name"`
}

type File struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	PreviewURL string `json:"preview_url"`
	Visible    bool   `json:"visible"`
}

// Order is the request body for Printful's order creation endpoint.
type Order struct {
	ExternalID  string      `json:"external_id"`
	Shipping    string      `json:"shipping"`
	Recipient   Recipient   `json:"recipient"`
	Items       []OrderItem `json:"items"`
	RetailCosts RetailCosts `json:"retail_costs"`
}

type Recipient struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code"`
	StateName   string `json:"state_name"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Zip         string `json:"zip"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email"`
}

type OrderItem struct {
	SyncVariantID int64  `json:"sync_variant_id"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	RetailPrice   string `json:"retail_price"`
}

type RetailCosts struct {
	Currency string `json:"currency"`
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	VAT      string `json:"vat"`
	Total    string `json:"total"`
}

type OrderResult struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

func (c *Client) ListSyncProducts(ctx context.Context) ([]SyncProductSummary, error) {
	var products []SyncProductSummary
	if err := c.request(ctx, http.MethodGet, "/sync/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetSyncProduct(ctx context.Context, id string) (*SyncProductDetail, error) {
	var detail SyncProductDetail
	if err := c.request(ctx, http.MethodGet, "/sync/products/"+url.PathEscape(id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreateOrder(ctx context.Context, order *Order) (*OrderResult, error) {
	var result OrderResult
	if err := c.request(ctx, http.MethodPost, "/orders", order, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, body, out interface{}) error {
	u := c.baseURL + endpoint
	if c.storeID != "" {
		u += "?store_id=" + url.QueryEscape(c.storeID)
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("printful request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("printful API error: %s %s - %s", resp.Status, endpoint, string(detail))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode printful response: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode printful result: %w", err)
		}
	}
	return nil
}
