package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubCatalog is a catalog.Lookup backed by a map
type stubCatalog struct {
	mu       sync.Mutex
	products map[string]catalog.ProductInfo
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: make(map[string]catalog.ProductInfo)}
}

func (s *stubCatalog) put(sku string, priceUSD float64, stock int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[sku] = catalog.ProductInfo{
		SKU:        sku,
		Name:       "Product " + sku,
		Price:      valueobject.NewMoneyUSDFromFloat(priceUSD),
		StockCount: stock,
		Available:  true,
	}
}

func (s *stubCatalog) GetProduct(ctx context.Context, sku string) (catalog.ProductInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.products[sku]
	if !ok {
		return catalog.ProductInfo{}, shared.ErrNotFound
	}
	return info, nil
}

type cartTestEnv struct {
	router     *gin.Engine
	catalog    *stubCatalog
	guestStore *cache.InMemoryCartStore
	userStore  *cache.InMemoryCartStore
	jwtService *auth.JWTService
}

func newCartTestEnv(t *testing.T) *cartTestEnv {
	t.Helper()

	env := &cartTestEnv{
		catalog:    newStubCatalog(),
		guestStore: cache.NewInMemoryCartStore(),
		userStore:  cache.NewInMemoryCartStore(),
	}
	env.jwtService = auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars!!",
		Issuer:     "storefront-test",
		Expiration: time.Hour,
	})

	manager := cartapp.NewManager(env.userStore, env.guestStore, env.catalog, nil, cartapp.DefaultConfig(), zap.NewNop())
	t.Cleanup(manager.Close)

	env.router = gin.New()
	api := env.router.Group("/api/v1")

	cartGroup := api.Group("/cart",
		middleware.OptionalJWTAuthMiddleware(env.jwtService),
		middleware.Identity(),
	)
	NewCartHandler(manager).RegisterRoutes(cartGroup)

	authGroup := api.Group("/auth")
	NewAuthHandler(env.jwtService, manager).RegisterRoutes(authGroup)

	return env
}

type cartEnvelope struct {
	Success bool         `json:"success"`
	Data    CartResponse `json:"data"`
}

func (e *cartTestEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, cartEnvelope) {
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
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var envelope cartEnvelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &envelope)
	}
	return w, envelope
}

func guestHeaders(deviceID string) map[string]string {
	return map[string]string{middleware.DeviceIDHeader: deviceID}
}

func TestCartHandler_AddItem(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 25.50, 10)

	w, resp := env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 2}, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "sku-1", resp.Data.Items[0].SKU)
	assert.Equal(t, int64(2), resp.Data.Items[0].Quantity)
	assert.Equal(t, "25.50", resp.Data.Items[0].UnitPrice)
	assert.Equal(t, "51.00", resp.Data.Total)
	assert.Equal(t, "USD", resp.Data.Currency)
}

func TestCartHandler_AddItem_DefaultsQuantityToOne(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 5)

	w, resp := env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1"}, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, int64(1), resp.Data.Items[0].Quantity)
}

func TestCartHandler_AddItem_ClampsToStock(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 3)

	w, resp := env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 9}, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, int64(3), resp.Data.Items[0].Quantity)
}

func TestCartHandler_AddItem_UnknownSKUIsSilentNoOp(t *testing.T) {
	env := newCartTestEnv(t)

	w, resp := env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-404", Quantity: 1}, guestHeaders("device-1"))

	// Default stock policy is clamp: absent products drop out quietly
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Data.Items)
}

func TestCartHandler_AddItem_Validation(t *testing.T) {
	env := newCartTestEnv(t)

	w, _ := env.do(t, "POST", "/api/v1/cart/items",
		map[string]any{"quantity": 2}, guestHeaders("device-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_UpdateItem(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 10)

	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 2}, guestHeaders("device-1"))

	qty := int64(5)
	w, resp := env.do(t, "PUT", "/api/v1/cart/items/sku-1",
		UpdateQuantityRequest{Quantity: &qty}, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, int64(5), resp.Data.Items[0].Quantity)
}

func TestCartHandler_UpdateItem_ZeroRemovesLine(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 10)

	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 2}, guestHeaders("device-1"))

	qty := int64(0)
	w, resp := env.do(t, "PUT", "/api/v1/cart/items/sku-1",
		UpdateQuantityRequest{Quantity: &qty}, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Data.Items)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 10)
	env.catalog.put("sku-2", 5.00, 10)

	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1"}, guestHeaders("device-1"))
	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-2"}, guestHeaders("device-1"))

	w, resp := env.do(t, "DELETE", "/api/v1/cart/items/sku-1", nil, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "sku-2", resp.Data.Items[0].SKU)
}

func TestCartHandler_Clear(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 10)

	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 3}, guestHeaders("device-1"))

	w, resp := env.do(t, "DELETE", "/api/v1/cart", nil, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Data.Items)
	assert.Equal(t, "0.00", resp.Data.Total)
}

func TestCartHandler_FlushPersistsWrites(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 12.00, 10)

	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 2}, guestHeaders("device-1"))

	w, _ := env.do(t, "POST", "/api/v1/cart/flush", nil, guestHeaders("device-1"))
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.guestStore.Load(context.Background(), "guest:device-1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, int64(2), stored.Items[0].Quantity)
}

func TestCartHandler_Get(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 10)

	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 2}, guestHeaders("device-1"))

	w, resp := env.do(t, "GET", "/api/v1/cart", nil, guestHeaders("device-1"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guest:device-1", resp.Data.OwnerID)
	assert.Equal(t, int64(2), resp.Data.ItemCount)
	assert.False(t, resp.Data.Loading)
}

func TestCartHandler_MissingIdentity(t *testing.T) {
	env := newCartTestEnv(t)

	w, _ := env.do(t, "GET", "/api/v1/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_LoginMergesGuestCart(t *testing.T) {
	env := newCartTestEnv(t)
	env.catalog.put("sku-1", 10.00, 20)
	env.catalog.put("sku-2", 5.00, 20)

	userID := uuid.New()
	ownerID := "user:" + userID.String()

	// The user already has sku-2 in their server-side cart
	now := time.Now()
	require.NoError(t, env.userStore.WriteAdd(context.Background(), ownerID, cart.Item{
		SKU:       "sku-2",
		Quantity:  1,
		UnitPrice: valueobject.NewMoneyUSDFromFloat(5.00),
		AddedAt:   now,
		UpdatedAt: now,
	}))

	// The guest adds sku-1, persisted before sign-in
	_, _ = env.do(t, "POST", "/api/v1/cart/items",
		AddItemRequest{SKU: "sku-1", Quantity: 2}, guestHeaders("device-1"))
	_, _ = env.do(t, "POST", "/api/v1/cart/flush", nil, guestHeaders("device-1"))

	// Sign in from the same device
	type loginEnvelope struct {
		Success bool          `json:"success"`
		Data    LoginResponse `json:"data"`
	}
	payload, _ := json.Marshal(LoginRequest{UserID: userID.String(), Username: "alice"})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.DeviceIDHeader, "device-1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var login loginEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.NotEmpty(t, login.Data.AccessToken)

	// Merged cart holds both lines under the user identity
	assert.Equal(t, ownerID, login.Data.Cart.OwnerID)
	assert.Len(t, login.Data.Cart.Items, 2)

	// Subsequent authenticated reads see the merged cart
	w2, resp := env.do(t, "GET", "/api/v1/cart", nil, map[string]string{
		"Authorization": "Bearer " + login.Data.AccessToken,
	})
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, ownerID, resp.Data.OwnerID)
	assert.Len(t, resp.Data.Items, 2)
}

func TestAuthHandler_LoginWithoutDevice(t *testing.T) {
	env := newCartTestEnv(t)
	userID := uuid.New()

	w, _ := env.do(t, "POST", "/api/v1/auth/login",
		LoginRequest{UserID: userID.String()}, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	env := newCartTestEnv(t)

	w, _ := env.do(t, "POST", "/api/v1/auth/login",
		map[string]any{"user_id": "not-a-uuid"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
