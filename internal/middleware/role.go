package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/eventide/backend/internal/auth"
	"github.com/eventide/backend/pkg/response"
)

// RequireOrganizer allows only callers whose identity is an organizer. Must run after JWT.
func RequireOrganizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !id.IsOrganizer {
			response.Forbidden(c, "organizer account required")
			c.Abort()
			return
		}
		c.Next()
	}
}
