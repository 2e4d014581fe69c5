package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductRepository is an in-memory catalog.ProductRepository
type fakeProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
	order    []uuid.UUID
}

func newFakeProductRepository() *fakeProductRepository {
	return &fakeProductRepository{products: make(map[uuid.UUID]*catalog.Product)}
}

func (r *fakeProductRepository) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepository) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeProductRepository) FindAll(_ context.Context, limit, offset int) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catalog.Product
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, *r.products[r.order[i]])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeProductRepository) ExistsBySKU(_ context.Context, sku string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProductRepository) Save(_ context.Context, product *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		r.order = append(r.order, product.ID)
	}
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *fakeProductRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeProductRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.products)), nil
}

type productEnvelope struct {
	Success bool                       `json:"success"`
	Data    catalogapp.ProductResponse `json:"data"`
}

func newProductTestRouter(t *testing.T) (*gin.Engine, *fakeProductRepository) {
	t.Helper()
	repo := newFakeProductRepository()
	service := catalogapp.NewProductService(repo, nil)

	router := gin.New()
	NewProductHandler(service).RegisterRoutes(router.Group("/api/v1/products"))
	return router, repo
}

func doProductRequest(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, productEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope productEnvelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &envelope)
	}
	return w, envelope
}

func createTestProduct(t *testing.T, router *gin.Engine, sku string, price string, stock int64) catalogapp.ProductResponse {
	t.Helper()
	w, resp := doProductRequest(t, router, "POST", "/api/v1/products", map[string]any{
		"sku":           sku,
		"name":          "Product " + sku,
		"selling_price": price,
		"stock_count":   stock,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return resp.Data
}

func TestProductHandler_Create(t *testing.T) {
	router, _ := newProductTestRouter(t)

	w, resp := doProductRequest(t, router, "POST", "/api/v1/products", map[string]any{
		"sku":           "widget-1",
		"name":          "Widget",
		"description":   "A widget",
		"selling_price": "19.99",
		"stock_count":   5,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "widget-1", resp.Data.SKU)
	assert.Equal(t, "Widget", resp.Data.Name)
	assert.Equal(t, "19.99", resp.Data.SellingPrice.StringFixed(2))
	assert.Equal(t, int64(5), resp.Data.StockCount)
	assert.True(t, resp.Data.Available)
}

func TestProductHandler_Create_DuplicateSKU(t *testing.T) {
	router, _ := newProductTestRouter(t)
	createTestProduct(t, router, "widget-1", "19.99", 5)

	w, _ := doProductRequest(t, router, "POST", "/api/v1/products", map[string]any{
		"sku":           "widget-1",
		"name":          "Widget again",
		"selling_price": "9.99",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProductHandler_Create_Validation(t *testing.T) {
	router, _ := newProductTestRouter(t)

	w, _ := doProductRequest(t, router, "POST", "/api/v1/products", map[string]any{
		"name": "No SKU",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_GetByID(t *testing.T) {
	router, _ := newProductTestRouter(t)
	created := createTestProduct(t, router, "widget-1", "19.99", 5)

	w, resp := doProductRequest(t, router, "GET", "/api/v1/products/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, resp.Data.ID)

	t.Run("unknown id", func(t *testing.T) {
		w, _ := doProductRequest(t, router, "GET", "/api/v1/products/"+uuid.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w, _ := doProductRequest(t, router, "GET", "/api/v1/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductHandler_GetBySKU(t *testing.T) {
	router, _ := newProductTestRouter(t)
	createTestProduct(t, router, "widget-1", "19.99", 5)

	w, resp := doProductRequest(t, router, "GET", "/api/v1/products/sku/widget-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "widget-1", resp.Data.SKU)

	w, _ = doProductRequest(t, router, "GET", "/api/v1/products/sku/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_List(t *testing.T) {
	router, _ := newProductTestRouter(t)
	createTestProduct(t, router, "widget-1", "10.00", 1)
	createTestProduct(t, router, "widget-2", "20.00", 2)
	createTestProduct(t, router, "widget-3", "30.00", 3)

	req := httptest.NewRequest("GET", "/api/v1/products?page=1&page_size=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []catalogapp.ProductResponse `json:"data"`
		Meta struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	// Newest first
	assert.Equal(t, "widget-3", resp.Data[0].SKU)
}

func TestProductHandler_Update(t *testing.T) {
	router, _ := newProductTestRouter(t)
	created := createTestProduct(t, router, "widget-1", "19.99", 5)

	w, resp := doProductRequest(t, router, "PUT", "/api/v1/products/"+created.ID.String(), map[string]any{
		"name":        "Renamed",
		"description": "Updated description",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", resp.Data.Name)
	assert.Equal(t, "Updated description", resp.Data.Description)
}

func TestProductHandler_ChangePrice(t *testing.T) {
	router, _ := newProductTestRouter(t)
	created := createTestProduct(t, router, "widget-1", "19.99", 5)

	w, resp := doProductRequest(t, router, "PUT", "/api/v1/products/"+created.ID.String()+"/price", map[string]any{
		"selling_price": "24.50",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "24.50", resp.Data.SellingPrice.StringFixed(2))
}

func TestProductHandler_AdjustStock(t *testing.T) {
	router, _ := newProductTestRouter(t)
	created := createTestProduct(t, router, "widget-1", "19.99", 5)

	t.Run("increase", func(t *testing.T) {
		w, resp := doProductRequest(t, router, "POST", "/api/v1/products/"+created.ID.String()+"/stock", map[string]any{
			"delta": 10,
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(15), resp.Data.StockCount)
	})

	t.Run("decrease below zero", func(t *testing.T) {
		w, _ := doProductRequest(t, router, "POST", "/api/v1/products/"+created.ID.String()+"/stock", map[string]any{
			"delta": -100,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestProductHandler_ActivateDeactivate(t *testing.T) {
	router, _ := newProductTestRouter(t)
	created := createTestProduct(t, router, "widget-1", "19.99", 5)

	w, resp := doProductRequest(t, router, "POST", "/api/v1/products/"+created.ID.String()+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Data.Available)

	w, resp = doProductRequest(t, router, "POST", "/api/v1/products/"+created.ID.String()+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Data.Available)
}

func TestProductHandler_Delete(t *testing.T) {
	router, _ := newProductTestRouter(t)
	created := createTestProduct(t, router, "widget-1", "19.99", 5)

	w, _ := doProductRequest(t, router, "DELETE", "/api/v1/products/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = doProductRequest(t, router, "GET", "/api/v1/products/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
