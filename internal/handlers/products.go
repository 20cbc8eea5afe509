package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kcasko/savepointapparel/internal/catalog"
	"github.com/kcasko/savepointapparel/internal/models"
)

type productCatalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// ProductsHandler serves the storefront catalog. Upstream failures degrade
// to the placeholder catalog so shoppers never see an empty store.
type ProductsHandler struct {
	Catalog productCatalog
}

type paginationInfo struct {
	CurrentPage int `json:"current_page"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
}

// List handles GET /api/products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 12)
	if limit < 1 || limit > 100 {
		limit = 12
	}
	if page < 1 {
		page = 1
	}

	products, err := h.Catalog.ListProducts(r.Context())
	if err != nil {
		slog.Warn("Catalog fetch failed, serving placeholder products", "error", err)
		products = catalog.Fallback()
	}

	total := len(products)
	start := (page - 1) * limit
	if start >= total {
		products = nil
	} else {
		end := start + limit
		if end > total {
			end = total
		}
		products = products[start:end]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"pagination": paginationInfo{
			CurrentPage: page,
			Total:       total,
			PerPage:     limit,
			TotalPages:  (total + limit - 1) / limit,
		},
	})
}

// Get handles GET /api/products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing product id")
		return
	}

	product, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		slog.Warn("Product fetch failed, checking placeholder catalog", "id", id, "error", err)
		if fallback := fallbackProduct(id); fallback != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"product": fallback})
			return
		}
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"product": product})
}

func fallbackProduct(id string) *models.Product {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil
	}
	for _, p := range catalog.Fallback() {
		if p.ID == parsed {
			return &p
		}
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
