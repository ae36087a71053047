package setup

import (
	"approvalmaster/internal/config"
	workflowHandler "approvalmaster/internal/handler/workflow"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/rule_engine"
	"approvalmaster/internal/pkg/utils"
	workflowRepo "approvalmaster/internal/repo/mysql/workflow"
	workflowService "approvalmaster/internal/service/workflow"

	"gorm.io/gorm"
)

// BuildWorkflowModule 构建工作流配置与实例模块
func BuildWorkflowModule(db *gorm.DB, evaluator *rule_engine.Evaluator, clock utils.Clock, cfg *config.Config) *WorkflowModule {
	logger.WithFields(map[string]interface{}{
		"path":      "setup.workflow",
		"operation": "build_module",
		"func_name": "setup.BuildWorkflowModule",
	}).Info("开始初始化工作流模块")

	// 1. Repository 初始化
	configRepo := workflowRepo.NewConfigurationRepository(db)
	instanceRepo := workflowRepo.NewInstanceRepository(db)

	// 2. Service 初始化
	configService := workflowService.NewConfigurationService(configRepo, evaluator)
	selectorService := workflowService.NewSelectorService(configRepo, evaluator)
	instanceService := workflowService.NewInstanceService(instanceRepo, clock)

	logger.WithFields(map[string]interface{}{
		"path":      "setup.workflow",
		"operation": "build_module",
		"func_name": "setup.BuildWorkflowModule",
	}).Info("工作流模块初始化完成")

	return &WorkflowModule{
		ConfigurationHandler: workflowHandler.NewConfigurationHandler(configService, selectorService, cfg.Engine.DefaultAction),
		InstanceHandler:      workflowHandler.NewInstanceHandler(instanceService),
		ConfigurationService: configService,
		SelectorService:      selectorService,
		InstanceService:      instanceService,
	}
}
