package handler

import (
	cartapp "github.com/storefront/backend/internal/application/cart"
)

// AddItemRequest is the payload for adding a line to the cart
type AddItemRequest struct {
	SKU      string `json:"sku" binding:"required,max=64"`
	Quantity int64  `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateQuantityRequest sets the quantity of an existing line.
// Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity *int64 `json:"quantity" binding:"required,min=0"`
}

// LoginRequest identifies the user signing in. Credential verification is
// delegated to the identity provider upstream; this service only needs the
// verified user ID to issue a token and merge the guest cart.
type LoginRequest struct {
	UserID   string `json:"user_id" binding:"required,uuid"`
	Username string `json:"username" binding:"omitempty,max=128"`
}

// LoginResponse carries the issued token and the merged cart
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   string       `json:"expires_at"`
	Cart        CartResponse `json:"cart"`
}

// CartItemResponse is one cart line in API responses
type CartItemResponse struct {
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
	Currency  string `json:"currency"`
}

// CartResponse is the cart snapshot in API responses
type CartResponse struct {
	OwnerID   string             `json:"owner_id"`
	Items     []CartItemResponse `json:"items"`
	Total     string             `json:"total"`
	Currency  string             `json:"currency"`
	ItemCount int64              `json:"item_count"`
	Loading   bool               `json:"loading"`
}

// ToCartResponse converts a cart view into its API shape
func ToCartResponse(view cartapp.View) CartResponse {
	items := make([]CartItemResponse, len(view.Items))
	for i, item := range view.Items {
		items[i] = CartItemResponse{
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.Amount().StringFixed(2),
			Subtotal:  item.Subtotal.Amount().StringFixed(2),
			Currency:  string(item.UnitPrice.Currency()),
		}
	}
	return CartResponse{
		OwnerID:   view.OwnerID,
		Items:     items,
		Total:     view.Total.Amount().StringFixed(2),
		Currency:  string(view.Total.Currency()),
		ItemCount: view.ItemCount,
		Loading:   view.Loading,
	}
}
