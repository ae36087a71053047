/**
 * 路由:审批路由
 * @author: sun977
 * @date: 2025.12.20
 * @description: 包含审批请求提交/取消/查询与审批决策/升级路由
 * @func:
 */

package router

import (
	"github.com/gin-gonic/gin"
)

// setupApprovalRoutes 设置审批请求与决策路由
func (r *Router) setupApprovalRoutes(v1 *gin.RouterGroup) {
	approval := v1.Group("/approval")
	approval.Use(r.middlewareManager.GinJWTAuthMiddleware())

	// 审批请求
	requests := approval.Group("/requests")
	{
		requests.POST("", r.approvalModule.RequestHandler.SubmitRequest)             // 提交审批请求(自动选择配置并路由)
		requests.GET("", r.approvalModule.RequestHandler.ListRequests)               // 获取审批请求列表
		requests.GET("/:id", r.approvalModule.RequestHandler.GetRequest)             // 获取审批请求详情
		requests.GET("/:id/detail", r.approvalModule.RequestHandler.GetRequestDetail) // 获取完整视图(含审批与升级记录)
		requests.POST("/:id/cancel", r.approvalModule.RequestHandler.CancelRequest)  // 取消审批请求
	}

	// 审批记录与决策
	approvals := approval.Group("/approvals")
	{
		approvals.POST("", r.approvalModule.ApprovalHandler.CreateApproval)              // 创建审批记录
		approvals.GET("/pending", r.approvalModule.ApprovalHandler.GetPendingApprovals)  // 当前用户待办审批列表
		approvals.POST("/:id/approve", r.approvalModule.ApprovalHandler.Approve)         // 通过审批
		approvals.POST("/:id/reject", r.approvalModule.ApprovalHandler.Reject)           // 拒绝审批
		approvals.POST("/:id/escalate", r.approvalModule.ApprovalHandler.Escalate)       // 升级审批
	}
}
