package handler

import (
	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartHandler exposes the shopper's cart over HTTP. Every route resolves the
// caller's identity first (user token or guest device header) and operates on
// that identity's session.
type CartHandler struct {
	BaseHandler
	manager *cartapp.Manager
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(manager *cartapp.Manager) *CartHandler {
	return &CartHandler{manager: manager}
}

// RegisterRoutes registers cart routes on the given group
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.DELETE("", h.Clear)
	rg.POST("/items", h.AddItem)
	rg.PUT("/items/:sku", h.UpdateItem)
	rg.DELETE("/items/:sku", h.RemoveItem)
	rg.POST("/flush", h.Flush)
}

func (h *CartHandler) session(c *gin.Context) (*cartapp.Session, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		h.BadRequest(c, "Cart identity not resolved")
		return nil, false
	}

	session, err := h.manager.Session(c.Request.Context(), identity)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return session, true
}

// Get returns the current cart snapshot
func (h *CartHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.Success(c, ToCartResponse(session.Snapshot()))
}

// AddItem adds a product to the cart, snapshotting its current price
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx, span := telemetry.StartServiceSpan(c.Request.Context(), "cart", "add_item",
		telemetry.WithAttribute(telemetry.SpanAttrSKU, req.SKU),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, quantity),
	)
	defer span.End()

	view, err := session.Add(ctx, req.SKU, quantity)
	if err != nil {
		telemetry.RecordError(span, err)
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToCartResponse(view))
}

// UpdateItem sets the quantity of a cart line. Quantity zero removes it.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	sku := c.Param("sku")

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx, span := telemetry.StartServiceSpan(c.Request.Context(), "cart", "update_quantity",
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, *req.Quantity),
	)
	defer span.End()

	view, err := session.UpdateQuantity(ctx, sku, *req.Quantity)
	if err != nil {
		telemetry.RecordError(span, err)
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToCartResponse(view))
}

// RemoveItem deletes a cart line
func (h *CartHandler) RemoveItem(c *gin.Context) {
	sku := c.Param("sku")

	session, ok := h.session(c)
	if !ok {
		return
	}

	view, err := session.Remove(c.Request.Context(), sku)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToCartResponse(view))
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	view, err := session.Clear(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToCartResponse(view))
}

// Flush waits until every pending write has been persisted. Clients call it
// before navigation events that must observe a durable cart.
func (h *CartHandler) Flush(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Flush(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToCartResponse(session.Snapshot()))
}
