package setup

import (
	"approvalmaster/internal/config"
	systemHandler "approvalmaster/internal/handler/system"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/utils"
	approvalRepo "approvalmaster/internal/repo/mysql/approval"
	workflowRepo "approvalmaster/internal/repo/mysql/workflow"
	redisRepo "approvalmaster/internal/repo/redis"
	"approvalmaster/internal/service/notification"
	schedulerService "approvalmaster/internal/service/scheduler"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// BuildSchedulerModule 构建后台调度模块
// 注册自动升级/提醒/超期刷新/历史清理四个后台任务，启动时机由 App 层控制
func BuildSchedulerModule(db *gorm.DB, redisClient *redis.Client, notifier notification.Notifier, clock utils.Clock, cfg *config.Config) *SchedulerModule {
	logger.WithFields(map[string]interface{}{
		"path":      "setup.scheduler",
		"operation": "build_module",
		"func_name": "setup.BuildSchedulerModule",
	}).Info("开始初始化后台调度模块")

	// 1. Repository 初始化
	requestRepo := approvalRepo.NewRequestRepository(db)
	approvalRecordRepo := approvalRepo.NewApprovalRepository(db)
	escalationRepo := approvalRepo.NewEscalationRepository(db)
	notificationRepo := approvalRepo.NewNotificationRepository(db)
	configRepo := workflowRepo.NewConfigurationRepository(db)
	reminderRepo := redisRepo.NewReminderRepository(redisClient)

	// 2. Sweeper 与 Scheduler 初始化
	// 升级目标策略默认为Noop(升级目标即原审批人时跳过)，部署方可替换为静态映射策略
	sweeper := schedulerService.NewSweeperService(
		requestRepo,
		approvalRecordRepo,
		escalationRepo,
		notificationRepo,
		configRepo,
		reminderRepo,
		schedulerService.NewNoopTargetPolicy(),
		notifier,
		clock,
		&cfg.Scheduler,
	)

	sched := schedulerService.NewScheduler()
	if err := sweeper.RegisterJobs(sched); err != nil {
		// 注册失败只可能是配置的扫描间隔非法，记录后继续，调度器按已注册任务运行
		logger.LogError(err, "", 0, "", "setup.scheduler", "INIT", map[string]interface{}{
			"operation": "register_jobs",
			"timestamp": logger.NowFormatted(),
		})
	}

	logger.WithFields(map[string]interface{}{
		"path":      "setup.scheduler",
		"operation": "build_module",
		"func_name": "setup.BuildSchedulerModule",
	}).Info("后台调度模块初始化完成")

	return &SchedulerModule{
		SchedulerHandler: systemHandler.NewSchedulerHandler(sched),
		Scheduler:        sched,
		Sweeper:          sweeper,
	}
}
