package cart

import (
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCart = "Cart"

// Event type constants
const (
	EventTypeItemAdded           = "CartItemAdded"
	EventTypeItemRemoved         = "CartItemRemoved"
	EventTypeItemQuantityChanged = "CartItemQuantityChanged"
	EventTypeCleared             = "CartCleared"
	EventTypeMerged              = "CartMerged"
)

// ItemAddedEvent is raised when units are added to a cart line
type ItemAddedEvent struct {
	shared.BaseDomainEvent
	OwnerID      string `json:"owner_id"`
	SKU          string `json:"sku"`
	Applied      int64  `json:"applied"`
	LineQuantity int64  `json:"line_quantity"`
}

// NewItemAddedEvent creates a new ItemAddedEvent
func NewItemAddedEvent(c *Cart, sku string, applied, lineQuantity int64) *ItemAddedEvent {
	return &ItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemAdded, AggregateTypeCart, c.ID),
		OwnerID:         c.OwnerID,
		SKU:             sku,
		Applied:         applied,
		LineQuantity:    lineQuantity,
	}
}

// EventType returns the event type name
func (e *ItemAddedEvent) EventType() string {
	return EventTypeItemAdded
}

// ItemRemovedEvent is raised when a cart line is deleted
type ItemRemovedEvent struct {
	shared.BaseDomainEvent
	OwnerID string `json:"owner_id"`
	SKU     string `json:"sku"`
}

// NewItemRemovedEvent creates a new ItemRemovedEvent
func NewItemRemovedEvent(c *Cart, sku string) *ItemRemovedEvent {
	return &ItemRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemRemoved, AggregateTypeCart, c.ID),
		OwnerID:         c.OwnerID,
		SKU:             sku,
	}
}

// EventType returns the event type name
func (e *ItemRemovedEvent) EventType() string {
	return EventTypeItemRemoved
}

// ItemQuantityChangedEvent is raised when a line quantity is set directly
type ItemQuantityChangedEvent struct {
	shared.BaseDomainEvent
	OwnerID  string `json:"owner_id"`
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// NewItemQuantityChangedEvent creates a new ItemQuantityChangedEvent
func NewItemQuantityChangedEvent(c *Cart, sku string, quantity int64) *ItemQuantityChangedEvent {
	return &ItemQuantityChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemQuantityChanged, AggregateTypeCart, c.ID),
		OwnerID:         c.OwnerID,
		SKU:             sku,
		Quantity:        quantity,
	}
}

// EventType returns the event type name
func (e *ItemQuantityChangedEvent) EventType() string {
	return EventTypeItemQuantityChanged
}

// ClearedEvent is raised when a cart is emptied
type ClearedEvent struct {
	shared.BaseDomainEvent
	OwnerID string `json:"owner_id"`
}

// NewClearedEvent creates a new ClearedEvent
func NewClearedEvent(c *Cart) *ClearedEvent {
	return &ClearedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCleared, AggregateTypeCart, c.ID),
		OwnerID:         c.OwnerID,
	}
}

// EventType returns the event type name
func (e *ClearedEvent) EventType() string {
	return EventTypeCleared
}

// MergedEvent is raised when a guest cart is folded into an authenticated cart
type MergedEvent struct {
	shared.BaseDomainEvent
	OwnerID     string `json:"owner_id"`
	FromOwnerID string `json:"from_owner_id"`
	ItemCount   int64  `json:"item_count"`
}

// NewMergedEvent creates a new MergedEvent
func NewMergedEvent(c *Cart, fromOwnerID string) *MergedEvent {
	return &MergedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerged, AggregateTypeCart, c.ID),
		OwnerID:         c.OwnerID,
		FromOwnerID:     fromOwnerID,
		ItemCount:       c.ItemCount(),
	}
}

// EventType returns the event type name
func (e *MergedEvent) EventType() string {
	return EventTypeMerged
}
