package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"

	"github.com/retreivo/retreivo/internal/user/domain"
)

// 网关完成认证后通过请求头透传身份信息
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	ctxKeyUserID   = "identity.user_id"
	ctxKeyUserRole = "identity.user_role"
)

// IdentityMiddleware 从请求头提取已认证身份，缺失则拒绝。
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "missing identity", "")
			c.Abort()
			return
		}
		role := domain.UserRole(c.GetHeader(HeaderUserRole))
		if role != domain.RoleHub {
			role = domain.RoleCitizen
		}
		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyUserRole, role)
		c.Next()
	}
}

// HubOnly 仅允许服务点工作人员访问
func HubOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) != domain.RoleHub {
			response.ErrorWithStatus(c, http.StatusForbidden, "hub role required", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID 返回当前请求的用户 ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// CurrentRole 返回当前请求的用户角色
func CurrentRole(c *gin.Context) domain.UserRole {
	if v, ok := c.Get(ctxKeyUserRole); ok {
		if role, ok := v.(domain.UserRole); ok {
			return role
		}
	}
	return domain.RoleCitizen
}
