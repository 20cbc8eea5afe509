package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kcasko/savepointapparel/internal/models"
	"github.com/kcasko/savepointapparel/internal/printful"
)

var (
	// ErrUpstreamUnavailable wraps any failure to reach the Printful API.
	// Callers fall back to the placeholder catalog instead of erroring out.
	ErrUpstreamUnavailable = errors.New("catalog upstream unavailable")

	ErrNotFound = errors.New("product not found")
)

const placeholderImage = "https://via.placeholder.com/400x400/1a1a1a/00ffff?text=Product"

// Adapter normalizes Printful sync products into the internal product shape.
// It holds no state beyond the API client; every call is a fresh fetch.
type Adapter struct {
	Printful *printful.Client
}

func NewAdapter(client *printful.Client) *Adapter {
	return &Adapter{Printful: client}
}

// ListProducts fetches the full synced catalog. Products without synced
// variant data are filtered out, not surfaced as errors.
func (a *Adapter) ListProducts(ctx context.Context) ([]models.Product, error) {
	if !a.Printful.Configured() {
		return nil, fmt.Errorf("%w: no API token configured", ErrUpstreamUnavailable)
	}

	summaries, err := a.Printful.ListSyncProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	products := make([]models.Product, 0, len(summaries))
	for _, summary := range summaries {
		if summary.IsIgnored {
			continue
		}
		detail, err := a.Printful.GetSyncProduct(ctx, strconv.FormatInt(summary.ID, 10))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		product, ok := transform(detail)
		if !ok {
			slog.Warn("Skipping product without synced variants", "product_id", summary.ID, "name", summary.Name)
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

func (a *Adapter) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if !a.Printful.Configured() {
		return nil, fmt.Errorf("%w: no API token configured", ErrUpstreamUnavailable)
	}

	detail, err := a.Printful.GetSyncProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	product, ok := transform(detail)
	if !ok {
		return nil, ErrNotFound
	}
	return &product, nil
}

// transform maps a Printful sync product onto models.Product. Returns false
// when the product has no synced variants and should be dropped.
func transform(detail *printful.SyncProductDetail) (models.Product, bool) {
	var synced []printful.SyncVariant
	for _, v := range detail.SyncVariants {
		if v.Synced {
			synced = append(synced, v)
		}
	}
	if len(synced) == 0 {
		return models.Product{}, false
	}
	defaultVariant := synced[0]

	// The product default price comes from the first synced variant; bad
	// upstream price strings must never surface as $0 items.
	price, ok := parsePrice(defaultVariant.RetailPrice)
	if !ok {
		slog.Warn("Product default variant has invalid retail price",
			"product_id", detail.SyncProduct.ID, "retail_price", defaultVariant.RetailPrice)
		price = bestVariantPrice(synced)
	}

	image := bestImage(defaultVariant, detail.SyncProduct.ThumbnailURL)
	category := categoryOf(defaultVariant)

	variants := make([]models.Variant, 0, len(synced))
	for _, v := range synced {
		variantPrice, ok := parsePrice(v.RetailPrice)
		if !ok {
			variantPrice = price
		}
		title := v.Name
		if title == "" {
			title = "Default"
		}
		variants = append(variants, models.Variant{
			ID:        v.ID,
			Title:     title,
			Price:     variantPrice,
			Available: v.Synced,
			SKU:       v.SKU,
		})
	}

	return models.Product{
		ID:          detail.SyncProduct.ID,
		ExternalID:  detail.SyncProduct.ExternalID,
		Name:        detail.SyncProduct.Name,
		Description: "High-quality " + detail.SyncProduct.Name,
		Price:       price,
		Image:       image,
		Category:    category,
		Tags:        []string{strings.ToLower(category), "retro", "gaming"},
		Variants:    variants,
	}, true
}

func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// bestVariantPrice finds the first parseable variant price, for products
// whose default variant carries a broken price string.
func bestVariantPrice(variants []printful.SyncVariant) float64 {
	for _, v := range variants {
		if price, ok := parsePrice(v.RetailPrice); ok {
			return price
		}
	}
	return 0
}

func bestImage(v printful.SyncVariant, thumbnail string) string {
	for _, f := range v.Files {
		if f.Type == "preview" && f.PreviewURL != "" {
			return f.PreviewURL
		}
	}
	for _, f := range v.Files {
		if f.Type == "default" && f.PreviewURL != "" {
			return f.PreviewURL
		}
	}
	if v.Product.Image != "" {
		return v.Product.Image
	}
	if thumbnail != "" {
		return thumbnail
	}
	return placeholderImage
}

func categoryOf(v printful.SyncVariant) string {
	name := v.Product.Name
	if name == "" {
		return "General"
	}
	// "Unisex Staple T-Shirt | Bella + Canvas 3001" -> "Unisex Staple T-Shirt"
	if idx := strings.Index(name, "|"); idx > 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}

// Fallback returns the static placeholder catalog served when Printful is
// unreachable or unconfigured, so the storefront never renders empty.
func Fallback() []models.Product {
	return []models.Product{
		{
			ID:          1,
			Name:        "Cozy Gamer Vibes Kids Tee",
			Description: "Perfect for young gamers who love retro vibes",
			Price:       17.00,
			Image:       "https://via.placeholder.com/400x400/1a1a1a/00ffff?text=Gamer+Tee",
			Category:    "Kids",
			Tags:        []string{"gaming", "kids", "retro"},
			Variants:    []models.Variant{{ID: 1, Title: "Default", Price: 17.00, Available: true, SKU: "GT-001"}},
		},
		{
			ID:          2,
			Name:        "Bubble-free Stickers",
			Description: "High-quality gaming stickers for your setup",
			Price:       2.50,
			Image:       "https://via.placeholder.com/400x400/1a1a1a/ff00ff?text=Stickers",
			Category:    "Accessories",
			Tags:        []string{"gaming", "stickers", "accessories"},
			Variants:    []models.Variant{{ID: 2, Title: "Default", Price: 2.50, Available: true, SKU: "ST-001"}},
		},
		{
			ID:          3,
			Name:        "Retro Gaming Hoodie",
			Description: "Stay cozy while gaming with this retro hoodie",
			Price:       45.00,
			Image:       "https://via.placeholder.com/400x400/1a1a1a/00ff00?text=Hoodie",
			Category:    "Hoodies",
			Tags:        []string{"gaming", "hoodie", "apparel"},
			Variants: []models.Variant{
				{ID: 3, Title: "Small", Price: 45.00, Available: true, SKU: "HD-001-S"},
				{ID: 4, Title: "Medium", Price: 45.00, Available: true, SKU: "HD-001-M"},
				{ID: 5, Title: "Large", Price: 45.00, Available: true, SKU: "HD-001-L"},
			},
		},
		{
			ID:          4,
			Name:        "Pixel Art Fanny Pack",
			Description: "Carry your essentials in retro style",
			Price:       25.00,
			Image:       "https://via.placeholder.com/400x400/1a1a1a/ffff00?text=Fanny+Pack",
			Category:    "Accessories",
			Tags:        []string{"gaming", "accessories", "bag"},
			Variants:    []models.Variant{{ID: 6, Title: "Default", Price: 25.00, Available: true, SKU: "FP-001"}},
		},
	}
}
