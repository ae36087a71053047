/**
 * 初始化
 * @author: sun977
 * @date: 2025.12.20
 * @description: 包含master程序初始化相关的类型定义
 * @func: setup 层仅负责依赖装配(Repository → Service → Handler)，不侵入业务逻辑
 */
package setup

import (
	approvalHandler "approvalmaster/internal/handler/approval"
	authHandler "approvalmaster/internal/handler/auth"
	systemHandler "approvalmaster/internal/handler/system"
	workflowHandler "approvalmaster/internal/handler/workflow"
	approvalService "approvalmaster/internal/service/approval"
	authService "approvalmaster/internal/service/auth"
	"approvalmaster/internal/service/notification"
	schedulerService "approvalmaster/internal/service/scheduler"
	workflowService "approvalmaster/internal/service/workflow"
)

// AuthModule 是认证模块的聚合输出
// Handler 与 Service 作为一个整体进行初始化与对外暴露，便于 router_manager 进行路由与中间件装配
type AuthModule struct {
	// Handlers（认证相关处理器）
	LoginHandler    *authHandler.LoginHandler
	LogoutHandler   *authHandler.LogoutHandler
	RefreshHandler  *authHandler.RefreshHandler
	RegisterHandler *authHandler.RegisterHandler

	// Services（对外暴露以供其他模块使用）
	AuthService *authService.AuthService
}

// WorkflowModule 是工作流配置与实例模块的聚合输出
type WorkflowModule struct {
	// Handlers（工作流相关处理器）
	ConfigurationHandler *workflowHandler.ConfigurationHandler
	InstanceHandler      *workflowHandler.InstanceHandler

	// Services（对外暴露以供审批模块使用）
	ConfigurationService *workflowService.ConfigurationService
	SelectorService      *workflowService.SelectorService
	InstanceService      *workflowService.InstanceService
}

// ApprovalModule 是审批请求与决策模块的聚合输出
type ApprovalModule struct {
	// Handlers（审批相关处理器）
	RequestHandler  *approvalHandler.RequestHandler
	ApprovalHandler *approvalHandler.ApprovalHandler

	// Services（对外暴露以供调度模块使用）
	IntakeService *approvalService.IntakeService
	EngineService *approvalService.EngineService
	QueryService  *approvalService.QueryService
	Notifier      notification.Notifier
}

// SchedulerModule 是后台调度模块的聚合输出
// Scheduler 的启动与停止由 App 层控制
type SchedulerModule struct {
	// Handler（调度管理处理器）
	SchedulerHandler *systemHandler.SchedulerHandler

	// Core Components（核心组件）
	Scheduler *schedulerService.Scheduler
	Sweeper   *schedulerService.SweeperService
}
