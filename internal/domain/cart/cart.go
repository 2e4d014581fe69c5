package cart

import (
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// StockPolicy controls what happens when a requested quantity exceeds stock
type StockPolicy string

const (
	// StockPolicyClamp silently reduces the quantity to available stock.
	// This is the default storefront behavior: the customer keeps what can
	// be fulfilled and no error is surfaced.
	StockPolicyClamp StockPolicy = "clamp"
	// StockPolicyReject surfaces ErrInsufficientStock instead of clamping
	StockPolicyReject StockPolicy = "reject"
)

// IsValid checks if the policy is a valid StockPolicy
func (p StockPolicy) IsValid() bool {
	return p == StockPolicyClamp || p == StockPolicyReject
}

// Item is a single cart line.
// UnitPrice is the price captured when the line was created or last updated;
// it does not track later catalog price changes.
type Item struct {
	SKU       string
	Quantity  int64
	UnitPrice valueobject.Money
	AddedAt   time.Time
	UpdatedAt time.Time
}

// Subtotal returns UnitPrice * Quantity
func (i *Item) Subtotal() valueobject.Money {
	return i.UnitPrice.MultiplyByInt(i.Quantity)
}

// Cart is the cart aggregate root, keyed by owner.
// Items are ordered by insertion and unique by SKU. Total and ItemCount are
// derived from Items on every call and never stored.
type Cart struct {
	shared.BaseAggregateRoot
	OwnerID string
	Items   []Item
}

// NewCart creates an empty cart for the given owner
func NewCart(ownerID string) (*Cart, error) {
	if ownerID == "" {
		return nil, shared.NewDomainError("INVALID_OWNER", "Cart owner cannot be empty")
	}
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		Items:             make([]Item, 0),
	}, nil
}

// AddItem adds requested units of a SKU, merging with an existing line.
// stock is the catalog's current stock count at the time of the mutation.
// Under StockPolicyClamp the resulting line quantity is capped at stock and
// the excess is dropped without error; a clamp down to zero means the item is
// not added at all. Under StockPolicyReject the whole request fails when it
// cannot be fully honored.
// Returns the quantity actually applied to the line.
func (c *Cart) AddItem(sku string, requested int64, unitPrice valueobject.Money, stock int64, policy StockPolicy) (int64, error) {
	if sku == "" {
		return 0, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if requested <= 0 {
		return 0, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}
	if stock < 0 {
		stock = 0
	}

	now := time.Now()

	if idx := c.indexOf(sku); idx >= 0 {
		item := &c.Items[idx]
		target := item.Quantity + requested
		if target > stock {
			if policy == StockPolicyReject {
				return 0, shared.ErrInsufficientStock
			}
			target = stock
		}
		if target < item.Quantity {
			// Stock dropped below what is already in the cart. Quantities are
			// not re-validated retroactively, so keep the existing line as is.
			return 0, nil
		}
		applied := target - item.Quantity
		item.Quantity = target
		item.UpdatedAt = now
		c.UpdatedAt = now
		if applied > 0 {
			c.AddDomainEvent(NewItemAddedEvent(c, sku, applied, item.Quantity))
		}
		return applied, nil
	}

	quantity := requested
	if quantity > stock {
		if policy == StockPolicyReject {
			return 0, shared.ErrInsufficientStock
		}
		quantity = stock
	}
	if quantity <= 0 {
		// Clamped to nothing: out of stock. Not an error by policy.
		return 0, nil
	}

	c.Items = append(c.Items, Item{
		SKU:       sku,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		AddedAt:   now,
		UpdatedAt: now,
	})
	c.UpdatedAt = now
	c.AddDomainEvent(NewItemAddedEvent(c, sku, quantity, quantity))

	return quantity, nil
}

// RemoveItem deletes the line for a SKU.
// Removing an absent SKU is a no-op, not an error.
// Returns true if a line was removed.
func (c *Cart) RemoveItem(sku string) bool {
	idx := c.indexOf(sku)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.UpdatedAt = time.Now()
	c.AddDomainEvent(NewItemRemovedEvent(c, sku))
	return true
}

// UpdateItemQuantity sets the quantity of an existing line.
// A quantity of zero or less removes the line. The new quantity is clamped to
// stock under StockPolicyClamp and rejected under StockPolicyReject.
// Returns shared.ErrNotFound if the SKU is not in the cart.
func (c *Cart) UpdateItemQuantity(sku string, quantity, stock int64, policy StockPolicy) error {
	if quantity <= 0 {
		c.RemoveItem(sku)
		return nil
	}

	idx := c.indexOf(sku)
	if idx < 0 {
		return shared.ErrNotFound
	}
	if stock < 0 {
		stock = 0
	}

	if quantity > stock {
		if policy == StockPolicyReject {
			return shared.ErrInsufficientStock
		}
		quantity = stock
	}
	if quantity <= 0 {
		c.RemoveItem(sku)
		return nil
	}

	item := &c.Items[idx]
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	c.UpdatedAt = item.UpdatedAt
	c.AddDomainEvent(NewItemQuantityChangedEvent(c, sku, quantity))

	return nil
}

// Clear empties the cart
func (c *Cart) Clear() {
	if len(c.Items) == 0 {
		return
	}
	c.Items = make([]Item, 0)
	c.UpdatedAt = time.Now()
	c.AddDomainEvent(NewClearedEvent(c))
}

// Total returns the sum of all line subtotals
func (c *Cart) Total() valueobject.Money {
	total := valueobject.ZeroUSD()
	for i := range c.Items {
		total = total.MustAdd(c.Items[i].Subtotal())
	}
	return total
}

// ItemCount returns the sum of all line quantities
func (c *Cart) ItemCount() int64 {
	var count int64
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

// Item returns the line for a SKU, if present
func (c *Cart) Item(sku string) (Item, bool) {
	if idx := c.indexOf(sku); idx >= 0 {
		return c.Items[idx], true
	}
	return Item{}, false
}

// Contains returns true if the SKU has a line in the cart
func (c *Cart) Contains(sku string) bool {
	return c.indexOf(sku) >= 0
}

// IsEmpty returns true if the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy of the cart without pending domain events.
// The reconciliation core uses clones for optimistic snapshots.
func (c *Cart) Clone() *Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	clone := &Cart{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: c.BaseEntity,
			Version:    c.Version,
		},
		OwnerID: c.OwnerID,
		Items:   items,
	}
	return clone
}

func (c *Cart) indexOf(sku string) int {
	for i := range c.Items {
		if c.Items[i].SKU == sku {
			return i
		}
	}
	return -1
}
