/**
 * 模型:工作流配置
 * @author: sun977
 * @date: 2025.12.20
 * @description: 工作流配置表，承载审批路由的规则/条件/阶段定义，规则字段以JSON存储保证配置可移植
 * @func: WorkflowConfiguration / StageDefinition / EscalationSettings 及 JSON 解析方法
 */
package workflow

import (
	"encoding/json"

	"approvalmaster/internal/model/basemodel"
	"approvalmaster/internal/pkg/rule_engine"

	"gorm.io/gorm"
)

// ConfigStatus 配置生命周期状态
type ConfigStatus string

const (
	ConfigStatusDraft    ConfigStatus = "draft"    // 草稿，可编辑
	ConfigStatusActive   ConfigStatus = "active"   // 已激活，参与配置选择
	ConfigStatusArchived ConfigStatus = "archived" // 已归档，不可修改
)

// WorkflowConfiguration 工作流配置表
// 租户所有，同一 (tenant, requestType) 允许多个 active 配置同时命中，
// 由配置选择器按 Priority 决出唯一结果
type WorkflowConfiguration struct {
	basemodel.BaseModel

	TenantID      uint64 `json:"tenant_id" gorm:"index:idx_wc_tenant_type,priority:1;not null;comment:租户ID"`
	Name          string `json:"name" gorm:"size:100;not null;comment:配置名称"`
	Description   string `json:"description" gorm:"type:text;comment:描述"`
	RequestTypeID uint64 `json:"request_type_id" gorm:"index:idx_wc_tenant_type,priority:2;not null;comment:请求类型ID"`

	// 规则与条件均以JSON列存储，线上格式为 {field, operator, value, action|logicalOperator, priority, groupId} 对象数组
	EvaluationRules      string `json:"evaluation_rules" gorm:"type:json;comment:路由规则(JSON)"`
	StartConditions      string `json:"start_conditions" gorm:"type:json;comment:启动条件(JSON)"`
	CompletionConditions string `json:"completion_conditions" gorm:"type:json;comment:完成条件(JSON)"`
	StageDefinitions     string `json:"stage_definitions" gorm:"type:json;comment:审批阶段定义(JSON)"`
	EscalationSettings   string `json:"escalation_settings" gorm:"type:json;comment:升级策略配置(JSON)"`

	Priority               int            `json:"priority" gorm:"default:0;comment:配置优先级(值越大越优先)"`
	// 布尔列不挂DB默认值：gorm对零值false会省略赋值列，false语义必须由服务层显式落库
	IsActive               bool           `json:"is_active" gorm:"comment:启用开关"`
	Status                 ConfigStatus   `json:"status" gorm:"size:20;default:'draft';comment:生命周期状态(draft/active/archived)"`
	RequiresManualApproval bool           `json:"requires_manual_approval" gorm:"comment:是否需要人工审批"`
	MaxExecutionTimeHours  int            `json:"max_execution_time_hours" gorm:"default:72;comment:最大执行时长(小时)"`
	MaxRetryCount          int            `json:"max_retry_count" gorm:"default:3;comment:最大重试次数"`
	Version                int            `json:"version" gorm:"default:1;comment:配置版本号"`
	CreatedBy              uint64         `json:"created_by" gorm:"comment:创建者ID"`
	UpdatedBy              uint64         `json:"updated_by" gorm:"comment:更新者ID"`
	DeletedAt              gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

// TableName 定义数据库表名
func (WorkflowConfiguration) TableName() string {
	return "workflow_configurations"
}

// StageDefinition 单个审批阶段定义
// Stage 从1开始递增，同一阶段的多个审批人并行审批
type StageDefinition struct {
	Stage       int      `json:"stage"`        // 阶段编号，从1开始
	Name        string   `json:"name"`         // 阶段名称
	ApproverIDs []uint64 `json:"approver_ids"` // 本阶段审批人
}

// EscalationConfig 升级策略配置
type EscalationConfig struct {
	Enabled                bool `json:"enabled"`                  // 是否启用自动升级
	ThresholdHours         int  `json:"threshold_hours"`          // 审批停留超过该时长触发升级
	ReminderThresholdHours int  `json:"reminder_threshold_hours"` // 提醒阈值(小时)
	SuppressionHours       int  `json:"suppression_hours"`        // 同一审批人提醒抑制窗口(小时)
}

// ParseEvaluationRules 解析JSON列为规则列表，空串视为无规则
func (c *WorkflowConfiguration) ParseEvaluationRules() ([]rule_engine.EvaluationRule, error) {
	if c.EvaluationRules == "" {
		return nil, nil
	}
	var rules []rule_engine.EvaluationRule
	if err := json.Unmarshal([]byte(c.EvaluationRules), &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// ParseStartConditions 解析启动条件列表
func (c *WorkflowConfiguration) ParseStartConditions() ([]rule_engine.Condition, error) {
	return parseConditions(c.StartConditions)
}

// ParseCompletionConditions 解析完成条件列表
func (c *WorkflowConfiguration) ParseCompletionConditions() ([]rule_engine.Condition, error) {
	return parseConditions(c.CompletionConditions)
}

// ParseStageDefinitions 解析阶段定义，未配置时返回nil
func (c *WorkflowConfiguration) ParseStageDefinitions() ([]StageDefinition, error) {
	if c.StageDefinitions == "" {
		return nil, nil
	}
	var stages []StageDefinition
	if err := json.Unmarshal([]byte(c.StageDefinitions), &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// ParseEscalationSettings 解析升级策略，未配置时返回nil
func (c *WorkflowConfiguration) ParseEscalationSettings() (*EscalationConfig, error) {
	if c.EscalationSettings == "" {
		return nil, nil
	}
	var cfg EscalationConfig
	if err := json.Unmarshal([]byte(c.EscalationSettings), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StageApprovers 返回指定阶段的审批人列表，阶段不存在返回nil
func (c *WorkflowConfiguration) StageApprovers(stage int) ([]uint64, error) {
	stages, err := c.ParseStageDefinitions()
	if err != nil {
		return nil, err
	}
	for _, s := range stages {
		if s.Stage == stage {
			return s.ApproverIDs, nil
		}
	}
	return nil, nil
}

// MaxStage 返回阶段定义中的最大阶段编号，无定义返回0
func (c *WorkflowConfiguration) MaxStage() (int, error) {
	stages, err := c.ParseStageDefinitions()
	if err != nil {
		return 0, err
	}
	max := 0
	for _, s := range stages {
		if s.Stage > max {
			max = s.Stage
		}
	}
	return max, nil
}

func parseConditions(raw string) ([]rule_engine.Condition, error) {
	if raw == "" {
		return nil, nil
	}
	var conditions []rule_engine.Condition
	if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
		return nil, err
	}
	return conditions, nil
}
