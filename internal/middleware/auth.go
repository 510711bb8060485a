package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careconnect-server/internal/config"
	"careconnect-server/internal/models"
	"careconnect-server/internal/session"
	"careconnect-server/internal/utils"
)

// AuthMiddleware creates a middleware for JWT authentication. Besides
// validating the token it records per-account activity with the session
// manager; a request arriving after the idle timeout is rejected even when
// the token itself is still valid, and the account's refresh tokens are
// revoked so the client must log in again rather than silently refresh.
func AuthMiddleware(db *gorm.DB, cfg *config.Config, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		if sessions != nil {
			if err := sessions.Touch(c.Request.Context(), claims.UserID); err != nil {
				if errors.Is(err, session.ErrExpired) {
					_ = models.RevokeUserRefreshTokens(db, claims.UserID)
					utils.Unauthorized(c, "Session expired due to inactivity. Please log in again.")
				} else {
					utils.InternalServerError(c, "Failed to record session activity: "+err.Error())
				}
				c.Abort()
				return
			}
		}

		// Set user information in context for downstream handlers
		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)

		c.Next()
	}
}

// extractToken pulls the bearer token from the Authorization header, or
// from the access_token query parameter for WebSocket upgrades, which
// cannot carry custom headers from browsers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("access_token")
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("userRole")
		if !exists {
			utils.InternalServerError(c, "User role not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		role, ok := userRole.(models.Role)
		if !ok {
			utils.InternalServerError(c, "User role in context is not of expected type.")
			c.Abort()
			return
		}

		isAllowed := false
		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				isAllowed = true
				break
			}
		}

		if !isAllowed {
			utils.Forbidden(c, "You do not have permission to access this resource.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// Helper function to get user role from context
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get("userRole")
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}
