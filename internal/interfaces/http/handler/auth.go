package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles sign-in. On login the guest cart, if any, is merged
// into the user's server-side cart according to the configured merge policy.
type AuthHandler struct {
	BaseHandler
	jwtService *auth.JWTService
	manager    *cartapp.Manager
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(jwtService *auth.JWTService, manager *cartapp.Manager) *AuthHandler {
	return &AuthHandler{jwtService: jwtService, manager: manager}
}

// RegisterRoutes registers auth routes on the given group
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}

// Login issues an access token and transitions the caller's cart session
// from guest to authenticated
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.BadRequest(c, "user_id must be a valid UUID")
		return
	}

	token, err := h.jwtService.GenerateToken(userID, req.Username)
	if err != nil {
		h.InternalError(c, "Failed to issue token")
		return
	}

	ctx, span := telemetry.StartServiceSpan(c.Request.Context(), "cart", "authenticate",
		telemetry.WithAttribute("user_id", userID.String()),
	)
	defer span.End()

	user := cartapp.NewUserIdentity(userID.String())

	var session *cartapp.Session
	if deviceID := middleware.GetDeviceID(c); deviceID != "" {
		session, err = h.manager.Authenticate(ctx, cartapp.NewGuestIdentity(deviceID), user)
	} else {
		session, err = h.manager.Session(ctx, user)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Cart:        ToCartResponse(session.Snapshot()),
	})
}
