/**
 * 应用:master应用装配
 * @author: sun977
 * @date: 2025.12.20
 * @description: 应用程序生命周期管理，配置/日志/存储连接初始化与各业务模块装配
 * @func:
 * 1.NewApp - 初始化配置、日志、MySQL、Redis并装配路由
 * 2.Start - 启动后台调度器
 * 3.Stop - 停止调度器并关闭存储连接
 */
package master

import (
	"context"
	"fmt"

	"approvalmaster/internal/app/master/middleware"
	"approvalmaster/internal/app/master/router"
	"approvalmaster/internal/app/master/setup"
	"approvalmaster/internal/config"
	authPkg "approvalmaster/internal/pkg/auth"
	"approvalmaster/internal/pkg/database"
	"approvalmaster/internal/pkg/logger"
	"approvalmaster/internal/pkg/rule_engine"
	"approvalmaster/internal/pkg/utils"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// App 应用程序结构体
type App struct {
	config          *config.Config
	db              *gorm.DB
	redisClient     *redis.Client
	router          *router.Router
	schedulerModule *setup.SchedulerModule
}

// NewApp 创建应用程序实例
// 初始化顺序：配置 → 日志 → 存储连接 → 业务模块 → 路由
func NewApp() (*App, error) {
	// 加载配置(路径与环境由环境变量兜底)
	cfg, err := config.LoadConfig("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 连接MySQL
	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}

	// 连接Redis
	redisClient, err := database.NewRedisConnection(&cfg.Database.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	// 公共组件
	evaluator := rule_engine.NewEvaluator(logger.LoggerInstance.GetLogger(), cfg.Engine.StopOnFirstMatch)
	clock := utils.NewSystemClock()

	// 业务模块装配
	authModule := setup.BuildAuthModule(db, redisClient, cfg)
	workflowModule := setup.BuildWorkflowModule(db, evaluator, clock, cfg)
	approvalModule := setup.BuildApprovalModule(db, redisClient, workflowModule, evaluator, clock, cfg)
	schedulerModule := setup.BuildSchedulerModule(db, redisClient, approvalModule.Notifier, clock, cfg)

	// 中间件管理器
	jwtManager := authPkg.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.AccessTokenExpire,
		cfg.Security.JWT.RefreshTokenExpire,
	)
	middlewareManager := middleware.NewMiddlewareManager(jwtManager, &cfg.Security)

	// 路由装配
	r := router.NewRouter(cfg, middlewareManager, authModule, workflowModule, approvalModule, schedulerModule)
	r.SetupRoutes()

	return &App{
		config:          cfg,
		db:              db,
		redisClient:     redisClient,
		router:          r,
		schedulerModule: schedulerModule,
	}, nil
}

// GetConfig 获取应用配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// Start 启动应用程序后台组件
func (a *App) Start(ctx context.Context) error {
	if a.config.Scheduler.Enabled {
		a.schedulerModule.Scheduler.Start(ctx)
		logger.WithFields(map[string]interface{}{
			"path":      "app.Start",
			"operation": "start_scheduler",
			"func_name": "master.App.Start",
			"jobs":      a.schedulerModule.Scheduler.JobNames(),
		}).Info("后台调度器已启动")
	}
	return nil
}

// Stop 停止应用程序
// 先停调度器再关闭存储连接
func (a *App) Stop() error {
	if a.config.Scheduler.Enabled {
		a.schedulerModule.Scheduler.Stop()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logger.LogError(err, "", 0, "", "app.Stop", "SHUTDOWN", map[string]interface{}{
				"operation": "close_redis",
				"timestamp": logger.NowFormatted(),
			})
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.LogError(err, "", 0, "", "app.Stop", "SHUTDOWN", map[string]interface{}{
					"operation": "close_mysql",
					"timestamp": logger.NowFormatted(),
				})
			}
		}
	}

	return nil
}
