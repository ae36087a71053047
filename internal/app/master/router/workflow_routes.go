/**
 * 路由:工作流路由
 * @author: sun977
 * @date: 2025.12.20
 * @description: 包含工作流配置管理与实例追踪路由
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupWorkflowRoutes 设置工作流配置与实例路由
func (r *Router) setupWorkflowRoutes(v1 *gin.RouterGroup) {
	workflow := v1.Group("/workflow")
	workflow.Use(r.middlewareManager.GinJWTAuthMiddleware())

	// 工作流配置管理
	configs := workflow.Group("/configurations")
	{
		configs.POST("", r.workflowModule.ConfigurationHandler.CreateConfiguration)          // 创建配置(初始为草稿)
		configs.GET("", r.workflowModule.ConfigurationHandler.ListConfigurations)            // 获取配置列表
		configs.POST("/select", r.workflowModule.ConfigurationHandler.SelectConfiguration)   // 按请求数据选择配置
		configs.GET("/:id", r.workflowModule.ConfigurationHandler.GetConfiguration)          // 获取配置详情
		configs.PUT("/:id", r.workflowModule.ConfigurationHandler.UpdateConfiguration)       // 更新配置
		configs.DELETE("/:id", r.workflowModule.ConfigurationHandler.DeleteConfiguration)    // 删除配置(软删除)
		configs.POST("/:id/activate", r.workflowModule.ConfigurationHandler.ActivateConfiguration) // 激活配置
		configs.POST("/:id/archive", r.workflowModule.ConfigurationHandler.ArchiveConfiguration)   // 归档配置
		configs.POST("/:id/evaluate", r.workflowModule.ConfigurationHandler.EvaluateConfiguration) // 规则试算(不落库)
	}

	// 工作流实例追踪
	instances := workflow.Group("/instances")
	{
		instances.GET("", r.workflowModule.InstanceHandler.ListInstances)                          // 获取实例列表
		instances.GET("/:instance_id", r.workflowModule.InstanceHandler.GetInstance)               // 获取实例详情
		instances.GET("/:instance_id/transitions", r.workflowModule.InstanceHandler.GetInstanceTrace) // 获取实例流转轨迹
	}
}
