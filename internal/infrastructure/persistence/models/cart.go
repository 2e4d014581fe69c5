package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
)

// CartItemModel is the persistence model for one cart line.
// Carts are stored as rows keyed by (owner_id, sku); the aggregate is
// reassembled on load. Totals are derived in the domain and never stored.
type CartItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OwnerID   string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_cart_owner_sku,priority:1"`
	SKU       string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_owner_sku,priority:2"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'USD'"`
	AddedAt   time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain cart Item
func (m *CartItemModel) ToDomain() cart.Item {
	return cart.Item{
		SKU:       m.SKU,
		Quantity:  m.Quantity,
		UnitPrice: moneyFromColumns(m.UnitPrice, m.Currency),
		AddedAt:   m.AddedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// CartItemModelFromDomain creates a persistence model from a domain cart Item
func CartItemModelFromDomain(ownerID string, item cart.Item) *CartItemModel {
	return &CartItemModel{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		SKU:       item.SKU,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice.Amount(),
		Currency:  string(item.UnitPrice.Currency()),
		AddedAt:   item.AddedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
