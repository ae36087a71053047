package setup

import (
	"approvalmaster/internal/config"
	approvalHandler "approvalmaster/internal/handler/approval"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/rule_engine"
	"approvalmaster/internal/pkg/utils"
	approvalRepo "approvalmaster/internal/repo/mysql/approval"
	workflowRepo "approvalmaster/internal/repo/mysql/workflow"
	redisRepo "approvalmaster/internal/repo/redis"
	approvalService "approvalmaster/internal/service/approval"
	"approvalmaster/internal/service/notification"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// BuildApprovalModule 构建审批请求与决策模块
// 依赖工作流模块提供的配置选择与实例追踪服务
func BuildApprovalModule(db *gorm.DB, redisClient *redis.Client, wf *WorkflowModule, evaluator *rule_engine.Evaluator, clock utils.Clock, cfg *config.Config) *ApprovalModule {
	logger.WithFields(map[string]interface{}{
		"path":      "setup.approval",
		"operation": "build_module",
		"func_name": "setup.BuildApprovalModule",
	}).Info("开始初始化审批模块")

	// 1. Repository 初始化
	requestRepo := approvalRepo.NewRequestRepository(db)
	approvalRecordRepo := approvalRepo.NewApprovalRepository(db)
	escalationRepo := approvalRepo.NewEscalationRepository(db)
	notificationRepo := approvalRepo.NewNotificationRepository(db)
	configRepo := workflowRepo.NewConfigurationRepository(db)
	reminderRepo := redisRepo.NewReminderRepository(redisClient)

	// 2. Service 初始化
	notifier := notification.NewNotificationService(notificationRepo, clock)
	engineService := approvalService.NewEngineService(requestRepo, approvalRecordRepo, escalationRepo, configRepo, wf.InstanceService, notifier, clock)
	intakeService := approvalService.NewIntakeService(requestRepo, approvalRecordRepo, wf.SelectorService, wf.InstanceService, reminderRepo, evaluator, notifier, clock, cfg.Engine.DefaultAction)
	queryService := approvalService.NewQueryService(requestRepo, approvalRecordRepo, escalationRepo)

	logger.WithFields(map[string]interface{}{
		"path":      "setup.approval",
		"operation": "build_module",
		"func_name": "setup.BuildApprovalModule",
	}).Info("审批模块初始化完成")

	return &ApprovalModule{
		RequestHandler:  approvalHandler.NewRequestHandler(intakeService, queryService),
		ApprovalHandler: approvalHandler.NewApprovalHandler(engineService, queryService),
		IntakeService:   intakeService,
		EngineService:   engineService,
		QueryService:    queryService,
		Notifier:        notifier,
	}
}
