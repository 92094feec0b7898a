package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"quimstock/internal/core/apperror"
	appctx "quimstock/internal/core/context"
	"quimstock/internal/core/security"
)

// contextAreaKey is the gin context key the Area middleware stores the
// resolved area under.
const contextAreaKey = "area"

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware validates JWT tokens and populates user context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		// Check Bearer prefix
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		// Validate token
		user, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		// Add user to context
		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("user_id", user.UserID)
		c.Set("username", user.Username)

		c.Next()
	}
}

// Area middleware resolves the :area route parameter and enforces that the
// authenticated user's scope covers it. The canonical area tag is stored in
// the gin context for handlers.
func Area() gin.HandlerFunc {
	return func(c *gin.Context) {
		area, err := security.ParseArea(c.Param("area"))
		if err != nil {
			_ = c.Error(apperror.NewValidation("unknown area").
				WithDetail("value", c.Param("area")))
			c.Abort()
			return
		}

		if !appctx.CanActOn(c.Request.Context(), area) {
			_ = c.Error(apperror.NewForbidden("area not in user scope").
				WithDetail("area", area.String()))
			c.Abort()
			return
		}

		c.Set(contextAreaKey, area)
		c.Next()
	}
}

// GetArea returns the area resolved by the Area middleware.
func GetArea(c *gin.Context) security.Area {
	if v, ok := c.Get(contextAreaKey); ok {
		if area, ok := v.(security.Area); ok {
			return area
		}
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
