/**
 * 中间件:认证相关中间件
 * @author: sun977
 * @date: 2025.12.20
 * @description: 定义认证相关中间件，令牌校验通过后将租户与用户标识注入请求上下文
 * @func:
 *   - GinJWTAuthMiddleware: Gin JWT认证中间件
 *   - GinAdminRoleMiddleware: 检查用户是否具有管理员角色中间件
 *   - GinRequireAnyRole: 检查用户是否具有任意角色中间件
 *   - extractTokenFromGinHeader: 从Gin请求头中提取JWT令牌
 */
package middleware

import (
	"net/http"
	"strings"

	"approvalmaster/internal/model"
	"approvalmaster/internal/model/system"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// =============================================================================
// JWT认证相关中间件
// =============================================================================

// GinJWTAuthMiddleware Gin JWT认证中间件
// 验证请求头中的JWT令牌，并将租户与用户信息存储到Gin上下文中
// 使用方式: router.Use(middlewareManager.GinJWTAuthMiddleware())
func (m *MiddlewareManager) GinJWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 提取参数
		clientIP := utils.GetClientIP(c)
		XRequestID := c.GetHeader("X-Request-ID")
		userAgent := c.GetHeader("User-Agent")

		// 从请求头中提取访问令牌
		accessToken, err := m.extractTokenFromGinHeader(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, model.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  "failed",
				Message: "missing or invalid authorization header",
				Error:   err.Error(),
			})
			c.Abort()
			return // 认证失败，直接返回
		}

		// 验证令牌 accessToken
		claims, err := m.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			// 记录错误日志
			logger.LogError(err, XRequestID, 0, clientIP, "token_validation", "GET", map[string]interface{}{
				"operation":    "token_validation",
				"client_ip":    clientIP,
				"user_agent":   userAgent,
				"X-Request-ID": XRequestID,
				"timestamp":    logger.NowFormatted(),
			})
			c.JSON(http.StatusUnauthorized, model.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  "failed",
				Message: "invalid or expired token",
				Error:   err.Error(),
			})
			c.Abort()
			return
		}

		// 租户标识缺失的令牌不允许访问业务接口
		if claims.TenantID == 0 {
			c.JSON(http.StatusUnauthorized, model.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  "failed",
				Message: "token missing tenant identity",
			})
			c.Abort()
			return
		}

		// 将租户与用户信息添加到Gin上下文
		c.Set("user_id", claims.UserID)
		c.Set("tenant_id", claims.TenantID)
		c.Set("username", claims.Username)
		c.Set("roles", claims.Roles)
		c.Set("claims", claims)

		// 继续处理请求
		c.Next()
	}
}

// =============================================================================
// 角色权限验证中间件
// =============================================================================

// GinAdminRoleMiddleware Gin管理员角色中间件
// 验证用户是否具有管理员角色
// 使用方式: router.Use(middlewareManager.GinAdminRoleMiddleware())
func (m *MiddlewareManager) GinAdminRoleMiddleware() gin.HandlerFunc {
	return m.GinRequireAnyRole("admin")
}

// GinRequireAnyRole Gin任意角色验证中间件
// 支持多角色验证，用户只需要拥有其中任意一个角色即可通过验证
// 参数: roles - 允许的角色列表
// 使用方式: router.Use(middlewareManager.GinRequireAnyRole("admin", "auditor"))
func (m *MiddlewareManager) GinRequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从上下文获取用户角色
		value, exists := c.Get("roles")
		if !exists {
			c.JSON(http.StatusUnauthorized, model.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  "failed",
				Message: "user not authenticated",
			})
			c.Abort()
			return
		}

		userRoles, ok := value.([]string)
		if !ok {
			c.JSON(http.StatusInternalServerError, model.APIResponse{
				Code:    http.StatusInternalServerError,
				Status:  "failed",
				Message: "invalid roles type",
			})
			c.Abort()
			return
		}

		for _, required := range roles {
			for _, role := range userRoles {
				if role == required {
					c.Next()
					return
				}
			}
		}

		c.JSON(http.StatusForbidden, model.APIResponse{
			Code:    http.StatusForbidden,
			Status:  "failed",
			Message: "insufficient role privileges",
		})
		c.Abort()
	}
}

// =============================================================================
// 辅助方法
// =============================================================================

// extractTokenFromGinHeader 从Gin请求头中提取访问令牌
// 参数: c - Gin上下文
// 返回: 访问令牌字符串和可能的错误
func (m *MiddlewareManager) extractTokenFromGinHeader(c *gin.Context) (string, error) {
	authorization := c.GetHeader("Authorization")
	if authorization == "" {
		return "", &system.ValidationError{Field: "authorization", Message: "authorization header is required"}
	}

	// 检查Bearer前缀
	if !strings.HasPrefix(authorization, "Bearer ") {
		return "", &system.ValidationError{Field: "authorization", Message: "authorization header must start with 'Bearer '"}
	}

	// 提取令牌
	token := strings.TrimPrefix(authorization, "Bearer ")
	if token == "" {
		return "", &system.ValidationError{Field: "authorization", Message: "access token cannot be empty"}
	}

	return token, nil
}
