package cart

import (
	"context"
)

// Store is the persistence boundary for carts: server-backed for
// authenticated owners, device-keyed (Redis) for guests. The store is the
// source of truth; the reconciliation core's local state is advisory only.
//
// Writes carry the already-reconciled values (clamped quantity, snapshotted
// unit price) so a store never re-derives cart semantics. Any write may fail;
// the caller recovers by reloading.
type Store interface {
	// Load returns the authoritative cart for an owner.
	// An owner without a persisted cart gets a new empty one.
	Load(ctx context.Context, ownerID string) (*Cart, error)

	// WriteAdd upserts a line with its reconciled quantity and snapshot price
	WriteAdd(ctx context.Context, ownerID string, item Item) error

	// WriteRemove deletes a line; absent lines are not an error
	WriteRemove(ctx context.Context, ownerID string, sku string) error

	// WriteUpdateQuantity sets the quantity of an existing line
	WriteUpdateQuantity(ctx context.Context, ownerID string, sku string, quantity int64) error

	// WriteClear deletes every line for the owner
	WriteClear(ctx context.Context, ownerID string) error
}
