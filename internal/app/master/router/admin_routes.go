/**
 * 路由:管理员路由
 * @author: sun977
 * @date: 2025.12.20
 * @description: 包含需要管理员权限的后台调度管理路由
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupAdminRoutes 设置管理员路由
func (r *Router) setupAdminRoutes(v1 *gin.RouterGroup) {
	// 管理员路由组（需要JWT认证和管理员权限）
	admin := v1.Group("/admin")
	admin.Use(r.middlewareManager.GinJWTAuthMiddleware())   // JWT认证中间件
	admin.Use(r.middlewareManager.GinAdminRoleMiddleware()) // 管理员权限检查中间件

	// 后台调度任务管理
	schedulerMgmt := admin.Group("/scheduler")
	{
		schedulerMgmt.GET("/jobs", r.schedulerModule.SchedulerHandler.ListJobs)            // 获取已注册的后台任务列表
		schedulerMgmt.POST("/jobs/:name/run", r.schedulerModule.SchedulerHandler.TriggerJob) // 手动触发指定后台任务
	}
}
