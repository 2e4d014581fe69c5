package catalog

import (
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductStatus represents the lifecycle status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

// IsValid checks if the status is a valid ProductStatus
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive:
		return true
	}
	return false
}

// String returns the string representation of ProductStatus
func (s ProductStatus) String() string {
	return string(s)
}

// Product is the catalog aggregate root.
// SKU is the external identifier carts reference; it is immutable after creation.
type Product struct {
	shared.BaseAggregateRoot
	SKU          string
	Name         string
	Description  string
	SellingPrice valueobject.Money
	StockCount   int64
	Status       ProductStatus
}

// NewProduct creates a new product in ACTIVE status with zero stock
func NewProduct(sku, name string, sellingPrice valueobject.Money) (*Product, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if sellingPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		SellingPrice:      sellingPrice,
		StockCount:        0,
		Status:            ProductStatusActive,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's display information
func (p *Product) Update(name, description string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	p.Name = name
	p.Description = description
	p.UpdatedAt = time.Now()
	return nil
}

// ChangePrice changes the selling price.
// Carts snapshot the price at add time, so existing cart lines are unaffected.
func (p *Product) ChangePrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}
	old := p.SellingPrice
	p.SellingPrice = price
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, old))

	return nil
}

// AdjustStock applies a signed delta to the stock count
// Returns ErrInsufficientStock if the result would be negative
func (p *Product) AdjustStock(delta int64) error {
	next := p.StockCount + delta
	if next < 0 {
		return shared.ErrInsufficientStock
	}
	p.StockCount = next
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(NewProductStockAdjustedEvent(p, delta))

	return nil
}

// Deactivate removes the product from sale
// Existing cart lines keep their snapshots; new adds see Available == false
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Product is already inactive")
	}
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(NewProductDeactivatedEvent(p))

	return nil
}

// Activate returns the product to sale
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Product is already active")
	}
	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	return nil
}

// IsAvailable returns true if the product can be added to carts
func (p *Product) IsAvailable() bool {
	return p.Status == ProductStatusActive && p.StockCount > 0
}

// Info returns the read-model snapshot served by the catalog lookup
func (p *Product) Info() ProductInfo {
	return ProductInfo{
		SKU:        p.SKU,
		Name:       p.Name,
		Price:      p.SellingPrice,
		StockCount: p.StockCount,
		Available:  p.IsAvailable(),
	}
}
