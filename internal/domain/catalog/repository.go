package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductInfo is the read-model snapshot the cart core consumes.
// Price and stock are point-in-time values; carts never hold a Product.
type ProductInfo struct {
	SKU        string
	Name       string
	Price      valueobject.Money
	StockCount int64
	Available  bool
}

// Lookup is the read-only catalog oracle consumed by the cart core
type Lookup interface {
	// GetProduct returns the current snapshot for a SKU
	// Returns shared.ErrNotFound if the SKU is unknown
	GetProduct(ctx context.Context, sku string) (ProductInfo, error)
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySKU finds a product by its SKU
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindAll finds all products, newest first
	FindAll(ctx context.Context, limit, offset int) ([]Product, error)

	// ExistsBySKU checks if a product with the given SKU exists
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// Delete deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts all products
	Count(ctx context.Context) (int64, error)
}
