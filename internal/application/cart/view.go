package cart

import (
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ItemView is a read-only projection of a cart line
type ItemView struct {
	SKU       string
	Quantity  int64
	UnitPrice valueobject.Money
	Subtotal  valueobject.Money
}

// View is the subscribable cart state exposed to UI consumers.
// Total and ItemCount are derived from Items at projection time.
type View struct {
	OwnerID   string
	Items     []ItemView
	Total     valueobject.Money
	ItemCount int64
	Loading   bool
}

// newView projects a cart aggregate into a View
func newView(c *cart.Cart, loading bool) View {
	items := make([]ItemView, len(c.Items))
	for i := range c.Items {
		items[i] = ItemView{
			SKU:       c.Items[i].SKU,
			Quantity:  c.Items[i].Quantity,
			UnitPrice: c.Items[i].UnitPrice,
			Subtotal:  c.Items[i].Subtotal(),
		}
	}
	return View{
		OwnerID:   c.OwnerID,
		Items:     items,
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
		Loading:   loading,
	}
}

// Contains returns true if the view has a line for the SKU
func (v View) Contains(sku string) bool {
	for i := range v.Items {
		if v.Items[i].SKU == sku {
			return true
		}
	}
	return false
}
