package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newIdentityRouter(jwtService *auth.JWTService) (*gin.Engine, *cartapp.Identity) {
	captured := &cartapp.Identity{}

	router := gin.New()
	handlers := []gin.HandlerFunc{}
	if jwtService != nil {
		handlers = append(handlers, OptionalJWTAuthMiddleware(jwtService))
	}
	handlers = append(handlers, Identity(), func(c *gin.Context) {
		if identity, ok := GetIdentity(c); ok {
			*captured = identity
		}
		c.Status(http.StatusOK)
	})
	router.GET("/cart", handlers...)

	return router, captured
}

func TestIdentity_GuestFromDeviceHeader(t *testing.T) {
	router, captured := newIdentityRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(DeviceIDHeader, "device-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cartapp.IdentityGuest, captured.Kind)
	assert.Equal(t, "device-42", captured.ID)
}

func TestIdentity_UserFromToken(t *testing.T) {
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars!!",
		Issuer:     "storefront-test",
		Expiration: time.Hour,
	})
	router, captured := newIdentityRouter(jwtService)

	userID := uuid.New()
	token, err := jwtService.GenerateToken(userID, "alice")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token.AccessToken)
	// The token wins even when a device header is present
	req.Header.Set(DeviceIDHeader, "device-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cartapp.IdentityUser, captured.Kind)
	assert.Equal(t, userID.String(), captured.ID)
}

func TestIdentity_InvalidTokenFallsBackToGuest(t *testing.T) {
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars!!",
		Issuer:     "storefront-test",
		Expiration: time.Hour,
	})
	router, captured := newIdentityRouter(jwtService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+"garbage")
	req.Header.Set(DeviceIDHeader, "device-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cartapp.IdentityGuest, captured.Kind)
}

func TestIdentity_MissingIdentityRejected(t *testing.T) {
	router, _ := newIdentityRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/cart", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_IDENTITY")
}
