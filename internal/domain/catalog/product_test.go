package catalog

import (
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestProduct(t *testing.T) *Product {
	product, err := NewProduct("sku-1", "Test Product", valueobject.NewMoneyUSDFromFloat(50.00))
	require.NoError(t, err)
	return product
}

func TestNewProduct(t *testing.T) {
	t.Run("creates product with valid inputs", func(t *testing.T) {
		product, err := NewProduct("sku-1", "Test Product", valueobject.NewMoneyUSDFromFloat(50.00))
		require.NoError(t, err)

		assert.Equal(t, "sku-1", product.SKU)
		assert.Equal(t, "Test Product", product.Name)
		assert.Equal(t, ProductStatusActive, product.Status)
		assert.Zero(t, product.StockCount)
		assert.NotEmpty(t, product.ID)
		assert.Equal(t, 1, product.GetVersion())
	})

	t.Run("publishes ProductCreated event", func(t *testing.T) {
		product := createTestProduct(t)

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductCreated, events[0].EventType())
	})

	t.Run("rejects empty SKU", func(t *testing.T) {
		_, err := NewProduct("", "Test", valueobject.ZeroUSD())
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct("sku-1", "", valueobject.ZeroUSD())
		assert.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewProduct("sku-1", "Test", valueobject.NewMoneyUSDFromFloat(-1))
		assert.Error(t, err)
	})
}

func TestProduct_AdjustStock(t *testing.T) {
	t.Run("increases stock", func(t *testing.T) {
		product := createTestProduct(t)
		require.NoError(t, product.AdjustStock(10))
		assert.Equal(t, int64(10), product.StockCount)
	})

	t.Run("decreases stock", func(t *testing.T) {
		product := createTestProduct(t)
		require.NoError(t, product.AdjustStock(10))
		require.NoError(t, product.AdjustStock(-4))
		assert.Equal(t, int64(6), product.StockCount)
	})

	t.Run("rejects adjustment below zero", func(t *testing.T) {
		product := createTestProduct(t)
		require.NoError(t, product.AdjustStock(3))
		err := product.AdjustStock(-5)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, int64(3), product.StockCount)
	})

	t.Run("publishes ProductStockAdjusted event", func(t *testing.T) {
		product := createTestProduct(t)
		product.ClearDomainEvents()
		require.NoError(t, product.AdjustStock(5))

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*ProductStockAdjustedEvent)
		require.True(t, ok)
		assert.Equal(t, int64(5), event.Delta)
		assert.Equal(t, int64(5), event.StockCount)
	})
}

func TestProduct_ChangePrice(t *testing.T) {
	product := createTestProduct(t)
	product.ClearDomainEvents()

	require.NoError(t, product.ChangePrice(valueobject.NewMoneyUSDFromFloat(75.00)))
	assert.Equal(t, "75.00 USD", product.SellingPrice.String())

	events := product.GetDomainEvents()
	require.Len(t, events, 1)
	event, ok := events[0].(*ProductPriceChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "50", event.OldPrice.String())
	assert.Equal(t, "75", event.NewPrice.String())

	t.Run("rejects negative price", func(t *testing.T) {
		assert.Error(t, product.ChangePrice(valueobject.NewMoneyUSDFromFloat(-10)))
	})
}

func TestProduct_Deactivate(t *testing.T) {
	product := createTestProduct(t)
	require.NoError(t, product.AdjustStock(5))

	require.NoError(t, product.Deactivate())
	assert.Equal(t, ProductStatusInactive, product.Status)
	assert.False(t, product.IsAvailable())

	t.Run("rejects double deactivation", func(t *testing.T) {
		assert.Error(t, product.Deactivate())
	})

	t.Run("can be reactivated", func(t *testing.T) {
		require.NoError(t, product.Activate())
		assert.True(t, product.IsAvailable())
	})
}

func TestProduct_IsAvailable(t *testing.T) {
	tests := []struct {
		name      string
		stock     int64
		status    ProductStatus
		available bool
	}{
		{"active with stock", 5, ProductStatusActive, true},
		{"active without stock", 0, ProductStatusActive, false},
		{"inactive with stock", 5, ProductStatusInactive, false},
		{"inactive without stock", 0, ProductStatusInactive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := createTestProduct(t)
			product.StockCount = tt.stock
			product.Status = tt.status
			assert.Equal(t, tt.available, product.IsAvailable())
		})
	}
}

func TestProduct_Info(t *testing.T) {
	product := createTestProduct(t)
	require.NoError(t, product.AdjustStock(7))

	info := product.Info()
	assert.Equal(t, "sku-1", info.SKU)
	assert.Equal(t, "Test Product", info.Name)
	assert.Equal(t, int64(7), info.StockCount)
	assert.True(t, info.Available)
	assert.True(t, info.Price.Equals(valueobject.NewMoneyUSDFromFloat(50.00)))
}
