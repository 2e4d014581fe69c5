package persistence

import (
	"context"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartStore implements cart.Store on PostgreSQL. It is the server-side
// store of record for authenticated shoppers: each write is a single-row
// statement carrying values already reconciled by the cart core, and Load
// reassembles the aggregate from rows in insertion order.
type GormCartStore struct {
	db *gorm.DB
}

// NewGormCartStore creates a new GormCartStore
func NewGormCartStore(db *gorm.DB) *GormCartStore {
	return &GormCartStore{db: db}
}

// Load returns the authoritative cart for an owner. An owner with no rows
// gets an empty cart, not an error.
func (s *GormCartStore) Load(ctx context.Context, ownerID string) (*cart.Cart, error) {
	var rows []models.CartItemModel
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("added_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	c, err := cart.NewCart(ownerID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		c.Items = append(c.Items, rows[i].ToDomain())
	}
	return c, nil
}

// WriteAdd upserts the line for the item's SKU
func (s *GormCartStore) WriteAdd(ctx context.Context, ownerID string, item cart.Item) error {
	model := models.CartItemModelFromDomain(ownerID, item)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "unit_price", "currency", "updated_at"}),
		}).
		Create(model).Error
}

// WriteRemove deletes the line for a SKU. Removing an absent line is a no-op.
func (s *GormCartStore) WriteRemove(ctx context.Context, ownerID string, sku string) error {
	return s.db.WithContext(ctx).
		Where("owner_id = ? AND sku = ?", ownerID, sku).
		Delete(&models.CartItemModel{}).Error
}

// WriteUpdateQuantity sets the quantity of an existing line
func (s *GormCartStore) WriteUpdateQuantity(ctx context.Context, ownerID string, sku string, quantity int64) error {
	return s.db.WithContext(ctx).
		Model(&models.CartItemModel{}).
		Where("owner_id = ? AND sku = ?", ownerID, sku).
		Update("quantity", quantity).Error
}

// WriteClear deletes every line for an owner
func (s *GormCartStore) WriteClear(ctx context.Context, ownerID string) error {
	return s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.CartItemModel{}).Error
}
