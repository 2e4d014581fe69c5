package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// Identity middleware keys and headers
const (
	IdentityKey    = "cart_identity"
	DeviceIDHeader = "X-Device-ID"
)

// Identity resolves the shopper identity for cart routes. A request with JWT
// claims (set by OptionalJWTAuthMiddleware) belongs to that user; otherwise
// the X-Device-ID header names a guest. Requests with neither are rejected,
// since there is no cart to operate on.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity cartapp.Identity

		if userID := GetJWTUserID(c); userID != "" {
			identity = cartapp.NewUserIdentity(userID)
		} else if deviceID := c.GetHeader(DeviceIDHeader); deviceID != "" {
			identity = cartapp.NewGuestIdentity(deviceID)

			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithDeviceID(ctx, log, deviceID)
			c.Request = c.Request.WithContext(ctx)
		} else {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_IDENTITY",
					"message": "Provide a bearer token or an X-Device-ID header",
				},
			})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// GetIdentity retrieves the resolved cart identity from gin.Context
func GetIdentity(c *gin.Context) (cartapp.Identity, bool) {
	if v, exists := c.Get(IdentityKey); exists {
		if identity, ok := v.(cartapp.Identity); ok {
			return identity, true
		}
	}
	return cartapp.Identity{}, false
}

// GetDeviceID returns the guest device ID header, if any
func GetDeviceID(c *gin.Context) string {
	return c.GetHeader(DeviceIDHeader)
}
