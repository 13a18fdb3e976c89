// file: middlewares/auth.go
package middlewares

import (
	"net/http"
	"strings"

	"CASCTF/config"
	"CASCTF/models"
	"CASCTF/utils"

	"github.com/gin-gonic/gin"
)

func extractToken(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	// 前端也可能通过 Cookie 携带 Token
	if cookie, err := c.Cookie(config.AccessTokenCookieName()); err == nil {
		return cookie
	}
	return ""
}

// JWTAuthMiddleware 验证用户是否登录
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			utils.Error(c, http.StatusUnauthorized, "Not authenticated")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

// RoleAuthMiddleware 验证用户角色权限
func RoleAuthMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleAny, exists := c.Get("user_role")
		if !exists {
			utils.Error(c, http.StatusForbidden, "Missing role information")
			c.Abort()
			return
		}

		role := roleAny.(models.UserRole)
		hasPermission := false
		for _, requiredRole := range requiredRoles {
			if role == requiredRole {
				hasPermission = true
				break
			}
		}

		if !hasPermission {
			utils.Error(c, http.StatusForbidden, "Admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID 从上下文读取登录用户 ID
func CurrentUserID(c *gin.Context) uint32 {
	v, _ := c.Get("user_id")
	id, _ := v.(uint32)
	return id
}

// CurrentUserRole 从上下文读取登录用户角色
func CurrentUserRole(c *gin.Context) models.UserRole {
	v, _ := c.Get("user_role")
	role, _ := v.(models.UserRole)
	return role
}
