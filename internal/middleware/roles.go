// Package middleware (roles.go) implements role-based authorization middleware.
//
// The role claim embedded in the JWT is ignored here: AuthMiddleware reloads
// the account on every request, so a role change (promotion or demotion) takes
// effect on the user's next request without invalidating or reissuing tokens.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/db/models"
)

// RequireRole checks if the authenticated user has one of the allowed roles.
// Missing or malformed context fails closed with 403.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		role, ok := roleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid role format",
			})
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Missing required role",
		})
	}
}

// RequireModerator allows moderator and admin roles
func RequireModerator() gin.HandlerFunc {
	return RequireRole(models.RoleModerator, models.RoleAdmin)
}

// RequireAdmin allows the admin role only
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
