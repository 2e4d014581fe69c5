package cache

import (
	"context"
	"sync"

	"github.com/storefront/backend/internal/domain/cart"
)

// InMemoryCartStore implements cart.Store with a process-local map. It backs
// guest carts in development and tests, and serves as the fallback when Redis
// is unreachable. Carts do not survive a restart.
type InMemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string][]cart.Item
}

// NewInMemoryCartStore creates an in-memory cart store
func NewInMemoryCartStore() *InMemoryCartStore {
	return &InMemoryCartStore{
		carts: make(map[string][]cart.Item),
	}
}

// Load returns the stored cart for an owner. An unknown owner gets an empty cart.
func (s *InMemoryCartStore) Load(ctx context.Context, ownerID string) (*cart.Cart, error) {
	c, err := cart.NewCart(ownerID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c.Items = append(c.Items, s.carts[ownerID]...)
	return c, nil
}

// WriteAdd upserts the line for the item's SKU
func (s *InMemoryCartStore) WriteAdd(ctx context.Context, ownerID string, item cart.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[ownerID]
	for i := range items {
		if items[i].SKU == item.SKU {
			items[i] = item
			return nil
		}
	}
	s.carts[ownerID] = append(items, item)
	return nil
}

// WriteRemove deletes the line for a SKU. Removing an absent line is a no-op.
func (s *InMemoryCartStore) WriteRemove(ctx context.Context, ownerID string, sku string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[ownerID]
	for i := range items {
		if items[i].SKU == sku {
			s.carts[ownerID] = append(items[:i], items[i+1:]...)
			break
		}
	}
	if len(s.carts[ownerID]) == 0 {
		delete(s.carts, ownerID)
	}
	return nil
}

// WriteUpdateQuantity sets the quantity of an existing line
func (s *InMemoryCartStore) WriteUpdateQuantity(ctx context.Context, ownerID string, sku string, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[ownerID]
	for i := range items {
		if items[i].SKU == sku {
			items[i].Quantity = quantity
			break
		}
	}
	return nil
}

// WriteClear deletes every line for an owner
func (s *InMemoryCartStore) WriteClear(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, ownerID)
	return nil
}

// Ensure InMemoryCartStore implements cart.Store
var _ cart.Store = (*InMemoryCartStore)(nil)
