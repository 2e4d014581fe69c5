package cart

import (
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestCart(t *testing.T) *Cart {
	c, err := NewCart("user:alice")
	require.NoError(t, err)
	return c
}

func price(f float64) valueobject.Money {
	return valueobject.NewMoneyUSDFromFloat(f)
}

// assertDerived checks that Total and ItemCount match a manual recomputation
// over the items. Every mutation test funnels through this.
func assertDerived(t *testing.T, c *Cart) {
	t.Helper()
	expectedTotal := valueobject.ZeroUSD()
	var expectedCount int64
	for i := range c.Items {
		expectedTotal = expectedTotal.MustAdd(c.Items[i].UnitPrice.MultiplyByInt(c.Items[i].Quantity))
		expectedCount += c.Items[i].Quantity
	}
	assert.True(t, c.Total().Equals(expectedTotal), "total must equal sum of line subtotals")
	assert.Equal(t, expectedCount, c.ItemCount())
}

func TestNewCart(t *testing.T) {
	t.Run("creates empty cart", func(t *testing.T) {
		c := createTestCart(t)
		assert.True(t, c.IsEmpty())
		assert.True(t, c.Total().IsZero())
		assert.Zero(t, c.ItemCount())
	})

	t.Run("rejects empty owner", func(t *testing.T) {
		_, err := NewCart("")
		assert.Error(t, err)
	})
}

func TestCart_AddItem(t *testing.T) {
	t.Run("adds new line within stock", func(t *testing.T) {
		c := createTestCart(t)
		applied, err := c.AddItem("sku-1", 3, price(50.00), 10, StockPolicyClamp)
		require.NoError(t, err)
		assert.Equal(t, int64(3), applied)

		require.Len(t, c.Items, 1)
		assert.Equal(t, int64(3), c.Items[0].Quantity)
		assert.Equal(t, "150.00 USD", c.Total().String())
		assert.Equal(t, int64(3), c.ItemCount())
		assertDerived(t, c)
	})

	t.Run("clamps new line to stock", func(t *testing.T) {
		c := createTestCart(t)
		applied, err := c.AddItem("sku-1", 8, price(10.00), 5, StockPolicyClamp)
		require.NoError(t, err)
		assert.Equal(t, int64(5), applied)

		item, ok := c.Item("sku-1")
		require.True(t, ok)
		assert.Equal(t, int64(5), item.Quantity)
		assertDerived(t, c)
	})

	t.Run("increments existing line instead of duplicating", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
		require.NoError(t, err)
		_, err = c.AddItem("sku-1", 3, price(10.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		require.Len(t, c.Items, 1)
		assert.Equal(t, int64(5), c.Items[0].Quantity)
		assertDerived(t, c)
	})

	t.Run("clamps merged quantity to stock", func(t *testing.T) {
		// cart has sku-1 qty 3, stock is 6: 3+5=8 clamps to 6
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 3, price(50.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		applied, err := c.AddItem("sku-1", 5, price(50.00), 6, StockPolicyClamp)
		require.NoError(t, err)
		assert.Equal(t, int64(3), applied)

		item, _ := c.Item("sku-1")
		assert.Equal(t, int64(6), item.Quantity)
		assert.Equal(t, "300.00 USD", c.Total().String())
		assertDerived(t, c)
	})

	t.Run("keeps snapshot price on merge", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 1, price(50.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		// Catalog price changed to 80; the line keeps its snapshot.
		_, err = c.AddItem("sku-1", 1, price(80.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		item, _ := c.Item("sku-1")
		assert.True(t, item.UnitPrice.Equals(price(50.00)))
		assert.Equal(t, "100.00 USD", c.Total().String())
	})

	t.Run("zero stock means nothing is added", func(t *testing.T) {
		c := createTestCart(t)
		applied, err := c.AddItem("sku-1", 2, price(10.00), 0, StockPolicyClamp)
		require.NoError(t, err)
		assert.Zero(t, applied)
		assert.True(t, c.IsEmpty())
	})

	t.Run("does not shrink a line when stock dropped below it", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 5, price(10.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		applied, err := c.AddItem("sku-1", 1, price(10.00), 3, StockPolicyClamp)
		require.NoError(t, err)
		assert.Zero(t, applied)

		item, _ := c.Item("sku-1")
		assert.Equal(t, int64(5), item.Quantity)
	})

	t.Run("reject policy surfaces insufficient stock", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 8, price(10.00), 5, StockPolicyReject)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.True(t, c.IsEmpty())
	})

	t.Run("rejects non-positive request", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 0, price(10.00), 5, StockPolicyClamp)
		assert.Error(t, err)
	})

	t.Run("publishes ItemAdded event", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 5, StockPolicyClamp)
		require.NoError(t, err)

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*ItemAddedEvent)
		require.True(t, ok)
		assert.Equal(t, "sku-1", event.SKU)
		assert.Equal(t, int64(2), event.Applied)
	})
}

func TestCart_RemoveItem(t *testing.T) {
	t.Run("removes existing line", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 5, StockPolicyClamp)
		require.NoError(t, err)

		assert.True(t, c.RemoveItem("sku-1"))
		assert.True(t, c.IsEmpty())
		assertDerived(t, c)
	})

	t.Run("removal of absent SKU is a no-op", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 5, StockPolicyClamp)
		require.NoError(t, err)
		before := c.Total()

		assert.False(t, c.RemoveItem("sku-404"))
		require.Len(t, c.Items, 1)
		assert.True(t, c.Total().Equals(before))
	})

	t.Run("preserves order of remaining lines", func(t *testing.T) {
		c := createTestCart(t)
		for _, sku := range []string{"sku-1", "sku-2", "sku-3"} {
			_, err := c.AddItem(sku, 1, price(1.00), 5, StockPolicyClamp)
			require.NoError(t, err)
		}

		c.RemoveItem("sku-2")
		require.Len(t, c.Items, 2)
		assert.Equal(t, "sku-1", c.Items[0].SKU)
		assert.Equal(t, "sku-3", c.Items[1].SKU)
	})
}

func TestCart_UpdateItemQuantity(t *testing.T) {
	t.Run("sets new quantity", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		require.NoError(t, c.UpdateItemQuantity("sku-1", 7, 10, StockPolicyClamp))
		item, _ := c.Item("sku-1")
		assert.Equal(t, int64(7), item.Quantity)
		assertDerived(t, c)
	})

	t.Run("clamps to stock", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		require.NoError(t, c.UpdateItemQuantity("sku-1", 20, 4, StockPolicyClamp))
		item, _ := c.Item("sku-1")
		assert.Equal(t, int64(4), item.Quantity)
	})

	t.Run("update to zero equals removal", func(t *testing.T) {
		a := createTestCart(t)
		b := createTestCart(t)
		for _, c := range []*Cart{a, b} {
			_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
			require.NoError(t, err)
			_, err = c.AddItem("sku-2", 1, price(5.00), 10, StockPolicyClamp)
			require.NoError(t, err)
		}

		require.NoError(t, a.UpdateItemQuantity("sku-1", 0, 10, StockPolicyClamp))
		b.RemoveItem("sku-1")

		assert.Equal(t, len(b.Items), len(a.Items))
		assert.True(t, a.Total().Equals(b.Total()))
		assert.Equal(t, b.ItemCount(), a.ItemCount())
	})

	t.Run("negative quantity also removes", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		require.NoError(t, c.UpdateItemQuantity("sku-1", -3, 10, StockPolicyClamp))
		assert.False(t, c.Contains("sku-1"))
	})

	t.Run("absent SKU returns not found", func(t *testing.T) {
		c := createTestCart(t)
		err := c.UpdateItemQuantity("sku-404", 3, 10, StockPolicyClamp)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("reject policy surfaces insufficient stock", func(t *testing.T) {
		c := createTestCart(t)
		_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
		require.NoError(t, err)

		err = c.UpdateItemQuantity("sku-1", 20, 4, StockPolicyReject)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		item, _ := c.Item("sku-1")
		assert.Equal(t, int64(2), item.Quantity)
	})
}

func TestCart_Clear(t *testing.T) {
	c := createTestCart(t)
	_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
	require.NoError(t, err)
	_, err = c.AddItem("sku-2", 1, price(5.00), 10, StockPolicyClamp)
	require.NoError(t, err)
	c.ClearDomainEvents()

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
	assert.Zero(t, c.ItemCount())

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCleared, events[0].EventType())

	t.Run("clearing an empty cart emits nothing", func(t *testing.T) {
		c.ClearDomainEvents()
		c.Clear()
		assert.Empty(t, c.GetDomainEvents())
	})
}

func TestCart_Clone(t *testing.T) {
	c := createTestCart(t)
	_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
	require.NoError(t, err)

	clone := c.Clone()
	assert.Empty(t, clone.GetDomainEvents())
	assert.Equal(t, c.OwnerID, clone.OwnerID)
	require.Len(t, clone.Items, 1)

	// Mutating the clone must not touch the original.
	_, err = clone.AddItem("sku-2", 1, price(1.00), 5, StockPolicyClamp)
	require.NoError(t, err)
	clone.Items[0].Quantity = 99

	assert.Len(t, c.Items, 1)
	assert.Equal(t, int64(2), c.Items[0].Quantity)
}

func TestCart_Reads(t *testing.T) {
	c := createTestCart(t)
	_, err := c.AddItem("sku-1", 2, price(10.00), 10, StockPolicyClamp)
	require.NoError(t, err)

	assert.True(t, c.Contains("sku-1"))
	assert.False(t, c.Contains("sku-2"))

	item, ok := c.Item("sku-1")
	assert.True(t, ok)
	assert.Equal(t, "20.00 USD", item.Subtotal().String())

	_, ok = c.Item("sku-2")
	assert.False(t, ok)
}
