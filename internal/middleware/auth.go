package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nutriscan-backend/internal/service"
	"github.com/nutriscan-backend/pkg/response"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
)

// AuthMiddleware resolves the session cookie to a user id. Requests
// without a valid session are rejected and the stale cookie cleared.
func AuthMiddleware(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieValue, err := c.Cookie(cookieName)
		if err != nil || cookieValue == "" {
			response.Unauthorized(c, "Not Logged In")
			c.Abort()
			return
		}

		userID, err := authService.Authenticate(c.Request.Context(), cookieValue)
		if err != nil {
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
			response.Unauthorized(c, "Not Logged In")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, userID)

		c.Next()
	}
}

// GetUserID gets the user ID from the gin context
func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0
	}
	return userID.(uint)
}
