package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/kcasko/savepointapparel/internal/models"
)

// priceTolerance is the maximum client/server price drift accepted without
// overwriting the client-submitted price.
const priceTolerance = 0.01

const (
	minQuantity = 1
	maxQuantity = 99
)

// CatalogLister is the slice of the catalog adapter the reconciler needs.
type CatalogLister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Reconciler re-derives authoritative prices for client-submitted cart items.
// A nil Catalog means no provider credentials are configured; reconciliation
// is then skipped entirely (development-mode bypass).
type Reconciler struct {
	Catalog CatalogLister
}

func NewReconciler(catalog CatalogLister) *Reconciler {
	return &Reconciler{Catalog: catalog}
}

type serverPrice struct {
	price float64
	name  string
}

// Reconcile validates quantities and replaces client-claimed prices with
// catalog prices wherever a server-side match exists. Catalog downtime must
// not block checkout: on fetch failure the original items come back with no
// errors. A non-empty error slice means the cart itself is malformed and the
// caller must not create a checkout session.
func (r *Reconciler) Reconcile(ctx context.Context, items []models.CartItem) ([]models.CartItem, []string) {
	var errs []string

	validated := make([]models.CartItem, 0, len(items))
	for i, item := range items {
		if item.Quantity < minQuantity || item.Quantity > maxQuantity {
			errs = append(errs, fmt.Sprintf("item %d: quantity must be between %d and %d", i+1, minQuantity, maxQuantity))
			continue
		}
		validated = append(validated, item)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if r.Catalog == nil {
		slog.Debug("Price reconciliation skipped: no catalog configured")
		return validated, nil
	}

	products, err := r.Catalog.ListProducts(ctx)
	if err != nil {
		slog.Warn("Price reconciliation skipped: catalog fetch failed", "error", err)
		return validated, nil
	}

	byVariant := make(map[int64]serverPrice)
	byProduct := make(map[int64]serverPrice)
	for _, p := range products {
		byProduct[p.ID] = serverPrice{price: p.Price, name: p.Name}
		for _, v := range p.Variants {
			byVariant[v.ID] = serverPrice{price: v.Price, name: p.Name + " - " + v.Title}
		}
	}

	for i, item := range validated {
		server, ok := byVariant[item.SyncVariantID]
		if !ok {
			if productID, err := strconv.ParseInt(item.ID, 10, 64); err == nil {
				server, ok = byProduct[productID]
			}
		}
		if !ok {
			// Trust-boundary gap: no server-side match, client price stands.
			slog.Warn("No catalog match for cart item, trusting client price",
				"item_id", item.ID, "sync_variant_id", item.SyncVariantID,
				"client_price", item.Price)
			continue
		}
		if math.Abs(server.price-item.Price) > priceTolerance {
			slog.Warn("Cart price mismatch, using catalog price",
				"item_id", item.ID, "client_price", item.Price, "catalog_price", server.price)
			validated[i].Price = server.price
			validated[i].Name = server.name
		}
	}

	return validated, nil
}
