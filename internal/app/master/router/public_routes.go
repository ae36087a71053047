/**
 * 路由:公共路由
 * @author: sun977
 * @date: 2025.12.20
 * @description: 包含不需要认证的公共路由与需要认证的账户自助路由
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupPublicRoutes 设置公共路由
func (r *Router) setupPublicRoutes(v1 *gin.RouterGroup) {
	// 认证相关公共路由
	auth := v1.Group("/auth")
	{
		// 用户注册(默认角色为普通用户 user)
		auth.POST("/register", r.authModule.RegisterHandler.Register)
		// 用户登录
		auth.POST("/login", r.authModule.LoginHandler.Login)
		// 刷新令牌(从body中传递refresh_token)
		auth.POST("/refresh", r.authModule.RefreshHandler.RefreshToken)
	}

	// 登出需要有效令牌
	authed := v1.Group("/auth")
	authed.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		authed.POST("/logout", r.authModule.LogoutHandler.Logout)
	}
}
