/*
*
  - 数据库迁移工具
  - @author: sun977
  - @date: 2025.12.20
  - @description: 数据库模型迁移和测试数据初始化工具
  - @usage: go run main.go -env=test -seed=true -drop=true
    -drop
    是否先删除表（危险操作）
    -env string
    环境标识 (test, dev, prod) (default "test")
    -seed
    是否填充测试数据 (default true)
    -verbose
    是否显示详细日志

示例:
main.exe -env=test -seed=true    # 测试环境迁移并填充数据
main.exe -env=prod -seed=false   # 生产环境仅迁移表结构
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"approvalmaster/internal/config"
	"approvalmaster/internal/model"
	"approvalmaster/internal/model/approval"
	"approvalmaster/internal/model/workflow"
	"approvalmaster/internal/pkg/database"
	"approvalmaster/internal/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MigrateOptions 迁移选项配置
type MigrateOptions struct {
	Environment string // 环境标识: test, dev, prod
	SeedData    bool   // 是否填充测试数据
	DropFirst   bool   // 是否先删除表（危险操作）
	Verbose     bool   // 是否显示详细日志
}

// DataSeeder 测试数据填充器
type DataSeeder struct {
	db  *gorm.DB
	env string
	log *logger.LoggerManager
}

func main() {
	// 解析命令行参数
	opts := parseFlags()

	// 加载配置
	cfg, err := config.LoadConfig("", opts.Environment)
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	// 初始化日志管理器
	logManager, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}

	logManager.GetLogger().WithFields(logrus.Fields{
		"path":        "cmd/migrate/main.go",
		"operation":   "database_migration",
		"option":      "migrate.start",
		"func_name":   "main",
		"environment": opts.Environment,
		"seed_data":   opts.SeedData,
		"drop_first":  opts.DropFirst,
	}).Info("开始数据库迁移")

	// 初始化数据库连接
	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		logManager.GetLogger().WithFields(logrus.Fields{
			"path":      "cmd/migrate/main.go",
			"operation": "database_connection",
			"option":    "database.NewMySQLConnection",
			"func_name": "main",
			"error":     err.Error(),
		}).Fatal("数据库连接失败")
	}

	// 执行迁移
	if err := performMigration(db, opts, logManager); err != nil {
		logManager.GetLogger().WithFields(logrus.Fields{
			"path":      "cmd/migrate/main.go",
			"operation": "database_migration",
			"option":    "performMigration",
			"func_name": "main",
			"error":     err.Error(),
		}).Fatal("数据库迁移失败")
	}

	logManager.GetLogger().WithFields(logrus.Fields{
		"path":      "cmd/migrate/main.go",
		"operation": "database_migration",
		"option":    "migrate.complete",
		"func_name": "main",
	}).Info("数据库迁移完成")
}

// parseFlags 解析命令行参数
func parseFlags() *MigrateOptions {
	opts := &MigrateOptions{}

	flag.StringVar(&opts.Environment, "env", "test", "环境标识 (test, dev, prod)")
	flag.BoolVar(&opts.SeedData, "seed", true, "是否填充测试数据")
	flag.BoolVar(&opts.DropFirst, "drop", false, "是否先删除表（危险操作）")
	flag.BoolVar(&opts.Verbose, "verbose", false, "是否显示详细日志")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ApprovalMaster 数据库迁移工具\n\n")
		fmt.Fprintf(os.Stderr, "用法: %s [选项]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "选项:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n示例:\n")
		fmt.Fprintf(os.Stderr, "  %s -env=test -seed=true    # 测试环境迁移并填充数据\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -env=prod -seed=false   # 生产环境仅迁移表结构\n", os.Args[0])
	}

	flag.Parse()
	return opts
}

// performMigration 执行数据库迁移
func performMigration(db *gorm.DB, opts *MigrateOptions, logManager *logger.LoggerManager) error {
	// 1. 删除表（如果指定）
	if opts.DropFirst {
		if err := dropTables(db, logManager); err != nil {
			return fmt.Errorf("删除表失败: %w", err)
		}
	}

	// 2. 执行模型迁移
	if err := migrateModels(db, logManager); err != nil {
		return fmt.Errorf("模型迁移失败: %w", err)
	}

	// 3. 填充测试数据（如果指定）
	if opts.SeedData {
		seeder := NewDataSeeder(db, opts.Environment, logManager)
		if err := seeder.SeedAll(); err != nil {
			return fmt.Errorf("数据填充失败: %w", err)
		}
	}

	return nil
}

// dropTables 删除所有表
// 危险操作，仅用于开发环境重置
func dropTables(db *gorm.DB, logManager *logger.LoggerManager) error {
	logManager.GetLogger().WithFields(logrus.Fields{
		"path":      "cmd/migrate/main.go",
		"operation": "drop_tables",
		"option":    "dropTables",
		"func_name": "dropTables",
	}).Warn("开始删除数据库表")

	// 按依赖关系逆序删除
	models := []interface{}{
		// 从属表先删除
		&approval.Notification{},
		&approval.ApprovalEscalation{},
		&approval.Approval{},
		&workflow.WorkflowInstanceTransition{},

		// 主表后删除
		&workflow.WorkflowInstance{},
		&approval.Request{},
		&workflow.WorkflowConfiguration{},
		&model.User{},
	}

	for _, m := range models {
		if err := db.Migrator().DropTable(m); err != nil {
			logManager.GetLogger().WithFields(logrus.Fields{
				"path":      "cmd/migrate/main.go",
				"operation": "drop_table",
				"option":    "db.Migrator().DropTable",
				"func_name": "dropTables",
				"model":     fmt.Sprintf("%T", m),
				"error":     err.Error(),
			}).Error("删除表失败")
		}
	}

	return nil
}

// migrateModels 执行模型迁移
func migrateModels(db *gorm.DB, loggerMgr *logger.LoggerManager) error {
	loggerMgr.GetLogger().Info("开始执行模型迁移...")

	// 定义所有需要迁移的模型
	models := []interface{}{
		// 系统模块
		&model.User{},

		// 工作流模块
		&workflow.WorkflowConfiguration{},
		&workflow.WorkflowInstance{},
		&workflow.WorkflowInstanceTransition{},

		// 审批模块
		&approval.Request{},
		&approval.Approval{},
		&approval.ApprovalEscalation{},
		&approval.Notification{},
	}

	// 执行自动迁移
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("迁移模型 %T 失败: %w", m, err)
		}
		loggerMgr.GetLogger().WithField("model", fmt.Sprintf("%T", m)).Info("模型迁移成功")
	}

	loggerMgr.GetLogger().Info("所有模型迁移完成")
	return nil
}

// NewDataSeeder 创建数据填充器
func NewDataSeeder(db *gorm.DB, env string, logManager *logger.LoggerManager) *DataSeeder {
	return &DataSeeder{
		db:  db,
		env: env,
		log: logManager,
	}
}

// SeedAll 填充所有测试数据
func (s *DataSeeder) SeedAll() error {
	s.log.GetLogger().WithFields(logrus.Fields{
		"path":      "cmd/migrate/main.go",
		"operation": "seed_data",
		"option":    "SeedAll",
		"func_name": "DataSeeder.SeedAll",
		"env":       s.env,
	}).Info("开始填充测试数据")

	// 按依赖关系顺序填充数据
	seedFunctions := []struct {
		name string
		fn   func() error
	}{
		{"系统用户数据", s.seedUserData},
		{"工作流配置数据", s.seedWorkflowData},
	}

	for _, seed := range seedFunctions {
		s.log.GetLogger().WithFields(logrus.Fields{
			"path":      "cmd/migrate/main.go",
			"operation": "seed_module",
			"option":    seed.name,
			"func_name": "DataSeeder.SeedAll",
		}).Info("填充数据模块")

		if err := seed.fn(); err != nil {
			return fmt.Errorf("填充%s失败: %w", seed.name, err)
		}
	}

	s.log.GetLogger().WithFields(logrus.Fields{
		"path":      "cmd/migrate/main.go",
		"operation": "seed_data",
		"option":    "SeedAll.complete",
		"func_name": "DataSeeder.SeedAll",
	}).Info("测试数据填充完成")

	return nil
}

// seedUserData 填充系统用户数据
// 创建演示租户(tenant_id=1)的管理员与普通用户
func (s *DataSeeder) seedUserData() error {
	users := []model.User{
		{
			TenantID: 1,
			Username: "admin",
			Email:    "admin@approvalmaster.com",
			Password: "$argon2id$v=19$m=65536,t=3,p=2$lMamQlbNnoIXZfszn4jWqw$zVTokU4nXju4CdOR1bH5ABOMbaEagr8mTXrhAh/p0kQ", // 密码: admin123
			Nickname: "系统管理员",
			Roles:    "admin,user",
			Status:   model.UserStatusEnabled,
		},
		{
			TenantID: 1,
			Username: "manager",
			Email:    "manager@approvalmaster.com",
			Password: "$argon2id$v=19$m=65536,t=3,p=2$lMamQlbNnoIXZfszn4jWqw$zVTokU4nXju4CdOR1bH5ABOMbaEagr8mTXrhAh/p0kQ", // 密码: admin123
			Nickname: "审批经理",
			Roles:    "user",
			Status:   model.UserStatusEnabled,
		},
		{
			TenantID: 1,
			Username: "employee",
			Email:    "employee@approvalmaster.com",
			Password: "$argon2id$v=19$m=65536,t=3,p=2$lMamQlbNnoIXZfszn4jWqw$zVTokU4nXju4CdOR1bH5ABOMbaEagr8mTXrhAh/p0kQ", // 密码: admin123
			Nickname: "普通员工",
			Roles:    "user",
			Status:   model.UserStatusEnabled,
		},
	}

	for _, user := range users {
		if err := s.db.Where("username = ?", user.Username).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}
		s.log.GetLogger().WithField("username", user.Username).Info("用户创建成功")
	}

	return nil
}

// seedWorkflowData 填充工作流配置测试数据
// 创建两套示例配置：费用报销(带金额路由规则)与请假审批(单阶段)
func (s *DataSeeder) seedWorkflowData() error {
	configs := []workflow.WorkflowConfiguration{
		{
			TenantID:      1,
			Name:          "expense_approval_default",
			Description:   "费用报销默认审批流：金额超过5000需要人工审批并升级到二级阶段",
			RequestTypeID: 1,
			EvaluationRules: `[
				{"field": "amount", "operator": "greaterThan", "value": 5000, "action": "RequireApproval", "priority": 1, "isActive": true},
				{"field": "amount", "operator": "lessOrEqual", "value": 500, "action": "AutoApprove", "priority": 2, "isActive": true}
			]`,
			StartConditions:      `[{"field": "amount", "operator": "greaterThan", "value": 0, "groupId": 1}]`,
			CompletionConditions: `[]`,
			StageDefinitions: `[
				{"stage": 1, "name": "直属主管审批", "approver_ids": [2]},
				{"stage": 2, "name": "财务复核", "approver_ids": [1]}
			]`,
			EscalationSettings:     `{"enabled": true, "threshold_hours": 24, "reminder_threshold_hours": 8, "suppression_hours": 4}`,
			Priority:               10,
			IsActive:               true,
			Status:                 workflow.ConfigStatusActive,
			RequiresManualApproval: true,
			MaxExecutionTimeHours:  72,
			Version:                1,
			CreatedBy:              1,
			UpdatedBy:              1,
		},
		{
			TenantID:      1,
			Name:          "leave_approval_default",
			Description:   "请假审批默认流程：单阶段主管审批",
			RequestTypeID: 2,
			EvaluationRules: `[
				{"field": "days", "operator": "greaterThan", "value": 3, "action": "RequireApproval", "priority": 1, "isActive": true},
				{"field": "days", "operator": "lessOrEqual", "value": 1, "action": "AutoApprove", "priority": 2, "isActive": true}
			]`,
			StageDefinitions:       `[{"stage": 1, "name": "主管审批", "approver_ids": [2]}]`,
			EscalationSettings:     `{"enabled": false}`,
			Priority:               5,
			IsActive:               true,
			Status:                 workflow.ConfigStatusActive,
			RequiresManualApproval: true,
			MaxExecutionTimeHours:  48,
			Version:                1,
			CreatedBy:              1,
			UpdatedBy:              1,
		},
	}

	for _, cfg := range configs {
		if err := s.db.Where("tenant_id = ? AND name = ?", cfg.TenantID, cfg.Name).FirstOrCreate(&cfg).Error; err != nil {
			return fmt.Errorf("创建工作流配置失败: %w", err)
		}
		s.log.GetLogger().WithField("config", cfg.Name).Info("工作流配置创建成功")
	}

	return nil
}
