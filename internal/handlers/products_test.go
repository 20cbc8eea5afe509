package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcasko/savepointapparel/internal/catalog"
	"github.com/kcasko/savepointapparel/internal/models"
)

type stubCatalog struct {
	products []models.Product
	product  *models.Product
	err      error
}

func (s *stubCatalog) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.products, s.err
}

func (s *stubCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func productsMux(h *ProductsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", h.List)
	mux.HandleFunc("GET /api/products/{id}", h.Get)
	return mux
}

func TestListProducts(t *testing.T) {
	h := &ProductsHandler{Catalog: &stubCatalog{products: []models.Product{
		{ID: 101, Name: "Retro Gaming Hoodie", Price: 45.00},
		{ID: 202, Name: "Bubble-free Stickers", Price: 2.50},
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Products   []models.Product `json:"products"`
		Pagination paginationInfo   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 2)
	assert.Equal(t, 2, resp.Pagination.Total)
	assert.Equal(t, 12, resp.Pagination.PerPage)
}

func TestListProducts_Pagination(t *testing.T) {
	h := &ProductsHandler{Catalog: &stubCatalog{products: []models.Product{
		{ID: 101, Name: "Retro Gaming Hoodie"},
		{ID: 202, Name: "Bubble-free Stickers"},
		{ID: 303, Name: "Pixel Art Fanny Pack"},
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/products?page=2&limit=2", nil)
	rec := httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Products   []models.Product `json:"products"`
		Pagination paginationInfo   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Pixel Art Fanny Pack", resp.Products[0].Name)
	assert.Equal(t, 2, resp.Pagination.TotalPages)

	// Past the end is an empty page, not an error.
	req = httptest.NewRequest(http.MethodGet, "/api/products?page=9&limit=2", nil)
	rec = httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Products)
}

func TestListProducts_CatalogFailureServesFallback(t *testing.T) {
	h := &ProductsHandler{Catalog: &stubCatalog{err: fmt.Errorf("%w: timeout", catalog.ErrUpstreamUnavailable)}}

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 4)
	assert.Equal(t, "Cozy Gamer Vibes Kids Tee", resp.Products[0].Name)
}

func TestGetProduct(t *testing.T) {
	h := &ProductsHandler{Catalog: &stubCatalog{product: &models.Product{ID: 101, Name: "Retro Gaming Hoodie"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/products/101", nil)
	rec := httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Retro Gaming Hoodie")
}

func TestGetProduct_NotFound(t *testing.T) {
	h := &ProductsHandler{Catalog: &stubCatalog{err: catalog.ErrNotFound}}

	req := httptest.NewRequest(http.MethodGet, "/api/products/999", nil)
	rec := httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct_UpstreamFailureFallsBack(t *testing.T) {
	h := &ProductsHandler{Catalog: &stubCatalog{err: fmt.Errorf("%w: timeout", catalog.ErrUpstreamUnavailable)}}

	// Placeholder product id resolves from the fallback catalog.
	req := httptest.NewRequest(http.MethodGet, "/api/products/3", nil)
	rec := httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Retro Gaming Hoodie")

	// Unknown id has no fallback either.
	req = httptest.NewRequest(http.MethodGet, "/api/products/999", nil)
	rec = httptest.NewRecorder()
	productsMux(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
